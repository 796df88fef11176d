package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quill/internal/config"
	"quill/internal/store"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show details for a captioning run (latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				run, err := resolveRun(cmd.Context(), st, optionalRunArg(args))
				if err != nil {
					return err
				}

				if jsonOut {
					return writeJSON(cmd, newRunJSONView(*run))
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:       %s\n", run.ID)
				fmt.Fprintf(out, "Source:    %s\n", run.SourcePath)
				fmt.Fprintf(out, "Title:     %s\n", runDisplayTitle(*run))
				fmt.Fprintf(out, "Status:    %s\n", formatStatusLabel(string(run.Status)))
				fmt.Fprintf(out, "Duration:  %s\n", formatMediaClock(run.MediaDuration))
				if run.Model != "" {
					fmt.Fprintf(out, "Model:     %s\n", run.Model)
				}
				if run.Language != "" {
					fmt.Fprintf(out, "Language:  %s\n", run.Language)
				}
				fmt.Fprintf(out, "Chunks:    %d\n", run.ChunkCount)
				fmt.Fprintf(out, "Captions:  %d\n", run.CaptionCount)
				fmt.Fprintf(out, "Gaps:      %d (%d repaired)\n", run.GapCount, run.RepairedCount)
				if run.SRTPath != "" {
					fmt.Fprintf(out, "SRT:       %s\n", run.SRTPath)
				}
				fmt.Fprintf(out, "Created:   %s\n", formatDisplayTime(run.CreatedAt))
				fmt.Fprintf(out, "Updated:   %s\n", formatDisplayTime(run.UpdatedAt))
				if run.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:     %s\n", run.ErrorMessage)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit run details as JSON")

	return cmd
}
