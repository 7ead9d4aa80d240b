package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSitesCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List the sites the exporter knows about",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := e.client()
			if err != nil {
				return err
			}
			sites, err := client.Sites()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(sites))
			for _, s := range sites {
				rows = append(rows, []string{s.ID, s.Name, s.URL, string(s.Status)})
			}
			fmt.Fprintln(e.out, renderTable([]string{"ID", "Name", "URL", "Status"}, rows, nil))
			return nil
		},
	}
}
