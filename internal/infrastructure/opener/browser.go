package opener

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mangaexporter/backend/internal/core/ports"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
	"github.com/pkg/browser"
)

func init() {
	// xdg-open and friends are chatty
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// BrowserOpener hands URLs and folders to the desktop's default handler.
type BrowserOpener struct {
	logger  *logger.Logger
	openURL func(string) error
	openDir func(string) error
}

func NewBrowserOpener(log *logger.Logger) *BrowserOpener {
	return &BrowserOpener{
		logger:  log,
		openURL: browser.OpenURL,
		openDir: browser.OpenFile,
	}
}

// Open shows target. An http(s) target opens in the browser; anything else is
// a folder, created first when it does not exist yet.
func (o *BrowserOpener) Open(target string) error {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		o.logger.Infow("opener_open_url", "url", target)
		if err := o.openURL(target); err != nil {
			return fmt.Errorf("open url: %w", err)
		}
		return nil
	}

	dir, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("resolve folder: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create folder: %w", err)
	}

	o.logger.Infow("opener_open_folder", "path", dir)
	if err := o.openDir(dir); err != nil {
		return fmt.Errorf("open folder: %w", err)
	}
	return nil
}

var _ ports.Opener = (*BrowserOpener)(nil)
