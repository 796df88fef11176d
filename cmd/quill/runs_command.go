package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quill/internal/config"
	"quill/internal/store"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List captioning runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				var statuses []store.Status
				if statusFlag != "" {
					status, ok := store.ParseStatus(statusFlag)
					if !ok {
						return fmt.Errorf("unknown status %q (valid: running, completed, failed, review)", statusFlag)
					}
					statuses = append(statuses, status)
				}

				runs, err := st.ListRuns(cmd.Context(), statuses...)
				if err != nil {
					return err
				}

				if jsonOut {
					views := make([]runJSONView, 0, len(runs))
					for _, run := range runs {
						views = append(views, newRunJSONView(*run))
					}
					return writeJSON(cmd, views)
				}

				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No captioning runs recorded")
					return nil
				}

				headers := []string{"ID", "STATUS", "TITLE", "DURATION", "CAPTIONS", "GAPS", "CREATED"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}
				fmt.Fprintln(out, renderTable(headers, buildRunListRows(runs), aligns))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Only show runs with this status")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit runs as JSON")

	return cmd
}
