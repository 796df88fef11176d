package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"quill/internal/config"
	"quill/internal/store"
)

func newClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool

	cmd := &cobra.Command{
		Use:   "clear [run-id]",
		Short: "Remove captioning runs and their stored captions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && len(args) > 0 {
				return errors.New("specify either a run id or --completed, not both")
			}
			if !clearCompleted && len(args) == 0 {
				return errors.New("specify a run id to remove, or --completed to prune finished runs")
			}
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				out := cmd.OutOrStdout()

				if clearCompleted {
					removed, err := st.ClearCompleted(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d completed runs\n", removed)
					return nil
				}

				run, err := st.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %q not found", args[0])
				}
				if _, err := st.RemoveRun(cmd.Context(), run.ID); err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed run %s\n", shortRunID(run.ID))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove all completed runs")

	return cmd
}
