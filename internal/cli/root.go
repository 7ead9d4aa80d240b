// Package cli implements the exporter command, a terminal client of the
// local API.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/mangaexporter/backend/internal/bridge"
	"github.com/mangaexporter/backend/internal/config"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
	server     string
	token      string
	debug      bool
}

type env struct {
	flags  *globalFlags
	out    io.Writer
	prompt Prompter
}

func (e *env) client() (*bridge.Client, error) {
	base, token := e.flags.server, e.flags.token
	if base == "" || token == "" {
		cfg, err := config.Load(config.ResolvePath(e.flags.configPath))
		if err != nil {
			return nil, err
		}
		if base == "" {
			base = cfg.Server.BaseURL()
		}
		if token == "" {
			token = cfg.Auth.APIToken
		}
	}
	return bridge.NewClient(base, token), nil
}

func (e *env) logger() *logger.Logger {
	level := "warn"
	if e.flags.debug {
		level = "debug"
	}
	log, err := logger.New(config.LoggerConfig{
		Level:       level,
		Encoding:    "console",
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return logger.Nop()
	}
	return log
}

func NewRootCommand(out io.Writer, prompt Prompter) *cobra.Command {
	e := &env{flags: &globalFlags{}, out: out, prompt: prompt}

	root := &cobra.Command{
		Use:           "exporter",
		Short:         "Start and follow manga list exports from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&e.flags.configPath, "config", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&e.flags.server, "server", "", "base URL of the running exporter (default from config)")
	root.PersistentFlags().StringVar(&e.flags.token, "token", "", "API token (default from config)")
	root.PersistentFlags().BoolVar(&e.flags.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newRunCommand(e),
		newSitesCommand(e),
		newHistoryCommand(e),
	)
	return root
}

func Execute() {
	if err := NewRootCommand(os.Stdout, PromptUI{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
