package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand(e *env) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show finished exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := e.client()
			if err != nil {
				return err
			}
			entries, err := client.History(limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(e.out, "No exports recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, h := range entries {
				rows = append(rows, []string{
					h.FinishedAt.Local().Format(time.DateTime),
					h.Site,
					string(h.Status),
					strconv.Itoa(h.Percent) + "%",
					strconv.Itoa(h.LogCount),
					strconv.Itoa(h.ExitCode),
					h.FinishedAt.Sub(h.StartedAt).Round(time.Second).String(),
				})
			}
			fmt.Fprintln(e.out, renderTable(
				[]string{"Finished", "Site", "Status", "Progress", "Logs", "Exit", "Duration"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to show")
	return cmd
}
