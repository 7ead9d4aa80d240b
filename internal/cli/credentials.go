package cli

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/manifoldco/promptui"
	"github.com/mangaexporter/backend/internal/domain"
)

const (
	envSkey  = "MANGA_SKEY"
	envTfv   = "MANGA_TFV"
	envTheme = "MANGA_THEME"
	envWd    = "MANGA_WD"
)

// Prompter asks the user for a value.
type Prompter interface {
	Ask(label string, secret bool) (string, error)
}

// PromptUI prompts on the terminal.
type PromptUI struct{}

func (PromptUI) Ask(label string, secret bool) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("value is required")
			}
			return nil
		},
	}
	if secret {
		p.Mask = '*'
	}
	return p.Run()
}

// loadDotEnv reads .env files the same way for every command. Values already
// in the environment win.
func loadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// resolveCookies fills cookies from flags, then the environment, then asks
// for whatever required value is still missing.
func resolveCookies(flags domain.Cookies, prompt Prompter, interactive bool) (domain.Cookies, error) {
	c := domain.Cookies{
		Skey:  firstNonEmpty(flags.Skey, os.Getenv(envSkey)),
		Tfv:   firstNonEmpty(flags.Tfv, os.Getenv(envTfv)),
		Theme: firstNonEmpty(flags.Theme, os.Getenv(envTheme)),
		Wd:    firstNonEmpty(flags.Wd, os.Getenv(envWd)),
	}

	if !interactive || prompt == nil {
		return c, nil
	}

	var err error
	if c.Skey == "" {
		if c.Skey, err = prompt.Ask("skey cookie", true); err != nil {
			return c, err
		}
	}
	if c.Tfv == "" {
		if c.Tfv, err = prompt.Ask("tfv cookie", true); err != nil {
			return c, err
		}
	}
	return c, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
