package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mangaexporter/backend/internal/bridge"
	"github.com/mangaexporter/backend/internal/domain"
	"github.com/spf13/cobra"
)

func newRunCommand(e *env) *cobra.Command {
	var (
		cookies  domain.Cookies
		site     string
		envFile  string
		noPrompt bool
		open     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start an export and follow its progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				loadDotEnv(envFile)
			} else {
				loadDotEnv()
			}

			resolved, err := resolveCookies(cookies, e.prompt, !noPrompt)
			if err != nil {
				return fmt.Errorf("read credentials: %w", err)
			}

			client, err := e.client()
			if err != nil {
				return err
			}

			id, err := client.Start(domain.ExportRequest{Cookies: resolved, Site: site})
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "export %s started\n", id)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			renderer := bridge.NewTerminalRenderer(e.out)
			record, err := bridge.NewPoller(client, renderer, bridge.DefaultInterval, e.logger()).Watch(ctx, id)
			if err != nil {
				if ctx.Err() != nil {
					return fmt.Errorf("stopped following export %s; it keeps running in the app", id)
				}
				return err
			}

			if record.Status != domain.ExportStatusCompleted {
				return fmt.Errorf("export %s finished with status %s", id, record.Status)
			}
			fmt.Fprintln(e.out, "Export completed successfully!")

			if open {
				if err := client.OpenOutput(); err != nil {
					return fmt.Errorf("open output folder: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cookies.Skey, "skey", "", "skey cookie (env "+envSkey+")")
	cmd.Flags().StringVar(&cookies.Tfv, "tfv", "", "tfv cookie (env "+envTfv+")")
	cmd.Flags().StringVar(&cookies.Theme, "theme", "", "theme cookie (env "+envTheme+")")
	cmd.Flags().StringVar(&cookies.Wd, "wd", "", "wd cookie (env "+envWd+")")
	cmd.Flags().StringVar(&site, "site", domain.SiteMangaPark, "site to export from")
	cmd.Flags().StringVar(&envFile, "env-file", "", "read cookies from this .env file")
	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "fail instead of prompting for missing cookies")
	cmd.Flags().BoolVar(&open, "open", false, "open the output folder when the export completes")
	return cmd
}
