package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"quill/internal/config"
	"quill/internal/srt"
	"quill/internal/store"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Write the stored captions of a run to a fresh SRT file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				run, err := resolveRun(cmd.Context(), st, optionalRunArg(args))
				if err != nil {
					return err
				}

				captions, err := st.CaptionsForRun(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if len(captions) == 0 {
					return fmt.Errorf("run %s has no stored captions", shortRunID(run.ID))
				}

				cues := make([]srt.Cue, 0, len(captions))
				for _, caption := range captions {
					cues = append(cues, srt.Cue{
						Index: caption.Position + 1,
						Start: caption.Start,
						End:   caption.End,
						Text:  caption.Text,
					})
				}

				dir := strings.TrimSpace(outputDir)
				if dir == "" {
					dir = cfg.Paths.OutputDir
				}
				if dir == "" {
					dir = filepath.Dir(run.SourcePath)
				}
				dir, err = config.ExpandPath(dir)
				if err != nil {
					return err
				}
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create output directory %q: %w", dir, err)
				}

				target := filepath.Join(dir, exportFileName(run))
				if err := srt.WriteFile(target, cues); err != nil {
					return fmt.Errorf("write subtitle file: %w", err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d captions to %s\n", len(cues), target)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory to write the subtitle file to")

	return cmd
}

// exportFileName mirrors the naming used during a live run so a re-export
// lands next to (or replaces) the original delivery.
func exportFileName(run *store.Run) string {
	base := strings.TrimSuffix(filepath.Base(run.SourcePath), filepath.Ext(run.SourcePath))
	if base == "" || base == "." {
		base = run.ID
	}
	language := strings.TrimSpace(run.Language)
	if language == "" {
		language = "en"
	}
	return fmt.Sprintf("%s.%s.srt", base, language)
}
