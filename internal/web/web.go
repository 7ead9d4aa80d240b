// Package web holds the UI page and the bridge script that connects it to
// the local API.
package web

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed static/index.html
var indexHTML []byte

//go:embed static/bridge.js
var bridgeJS []byte

var bodyClose = []byte("</body>")

// BridgeConfig is handed to the bridge script as window.__EXPORTER__.
type BridgeConfig struct {
	BaseURL      string `json:"baseURL"`
	Token        string `json:"token,omitempty"`
	Site         string `json:"site,omitempty"`
	PollInterval int    `json:"pollInterval,omitempty"`
}

// Script returns the bridge as plain JavaScript, ready for a webview's
// eval call.
func Script(cfg BridgeConfig) (string, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode bridge config: %w", err)
	}
	return fmt.Sprintf("window.__EXPORTER__ = %s;\n%s", raw, bridgeJS), nil
}

// Inject places the bridge right before </body>. A page without one gets the
// script appended.
func Inject(page []byte, cfg BridgeConfig) ([]byte, error) {
	script, err := Script(cfg)
	if err != nil {
		return nil, err
	}
	tag := []byte("<script>\n" + script + "\n</script>\n")

	idx := bytes.LastIndex(page, bodyClose)
	if idx < 0 {
		return append(append([]byte{}, page...), tag...), nil
	}

	out := make([]byte, 0, len(page)+len(tag))
	out = append(out, page[:idx]...)
	out = append(out, tag...)
	out = append(out, page[idx:]...)
	return out, nil
}

// Page returns the bundled UI page with the bridge injected.
func Page(cfg BridgeConfig) ([]byte, error) {
	return Inject(indexHTML, cfg)
}

// RawPage returns the bundled page without the bridge. The desktop host loads
// it and evaluates Script once the DOM is ready.
func RawPage() []byte {
	return append([]byte{}, indexHTML...)
}
