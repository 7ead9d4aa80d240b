package domain

import (
	"encoding/json"
	"strings"
)

// Cookies are the site session identifiers the export script authenticates with.
type Cookies struct {
	Skey  string `json:"skey"`
	Tfv   string `json:"tfv"`
	Theme string `json:"theme,omitempty"`
	Wd    string `json:"wd,omitempty"`
}

type ExportRequest struct {
	Cookies Cookies `json:"cookies"`
	Site    string  `json:"site,omitempty"`
}

// Validate lists every missing required field.
func (r *ExportRequest) Validate() []string {
	var problems []string
	if strings.TrimSpace(r.Cookies.Skey) == "" {
		problems = append(problems, "skey cookie is required")
	}
	if strings.TrimSpace(r.Cookies.Tfv) == "" {
		problems = append(problems, "tfv cookie is required")
	}
	return problems
}

// SiteID returns the requested site, defaulting to MangaPark.
func (r *ExportRequest) SiteID() string {
	if s := strings.TrimSpace(r.Site); s != "" {
		return strings.ToLower(s)
	}
	return SiteMangaPark
}

// Argument is the serialized form handed to the export script.
func (c Cookies) Argument() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
