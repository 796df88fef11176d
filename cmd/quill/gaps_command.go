package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quill/internal/config"
	"quill/internal/store"
)

type gapJSONView struct {
	Position int     `json:"position"`
	Start    float64 `json:"start_seconds"`
	End      float64 `json:"end_seconds"`
	Outcome  string  `json:"outcome"`
}

func newGapsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "gaps [run-id]",
		Short: "List the suspected-speech gaps examined during a run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				run, err := resolveRun(cmd.Context(), st, optionalRunArg(args))
				if err != nil {
					return err
				}

				gaps, err := st.GapsForRun(cmd.Context(), run.ID)
				if err != nil {
					return err
				}

				if jsonOut {
					views := make([]gapJSONView, 0, len(gaps))
					for _, gap := range gaps {
						views = append(views, gapJSONView{
							Position: gap.Position,
							Start:    gap.Start,
							End:      gap.End,
							Outcome:  gap.Outcome,
						})
					}
					return writeJSON(cmd, views)
				}

				out := cmd.OutOrStdout()
				if len(gaps) == 0 {
					fmt.Fprintf(out, "No gaps recorded for run %s\n", shortRunID(run.ID))
					return nil
				}

				rows := make([][]string, 0, len(gaps))
				for _, gap := range gaps {
					rows = append(rows, []string{
						fmt.Sprintf("%d", gap.Position+1),
						formatSpan(gap.Start, gap.End),
						fmt.Sprintf("%.1fs", gap.End-gap.Start),
						formatStatusLabel(gap.Outcome),
					})
				}
				headers := []string{"#", "RANGE (S)", "DURATION", "OUTCOME"}
				aligns := []columnAlignment{alignRight, alignLeft, alignRight, alignLeft}
				fmt.Fprintln(out, renderTable(headers, rows, aligns))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit gaps as JSON")

	return cmd
}
