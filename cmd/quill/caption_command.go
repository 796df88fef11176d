package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"quill/internal/captioner"
	"quill/internal/config"
	"quill/internal/logging"
	"quill/internal/media/audio"
	"quill/internal/preflight"
	"quill/internal/scrub"
	"quill/internal/store"
	"quill/internal/transcribe"
	"quill/internal/vad"
)

func newCaptionCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var language string
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "caption <media-file>",
		Short: "Transcribe a media file and export subtitles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays, logging.RetentionTarget{
				Dir:     cfg.Paths.LogDir,
				Pattern: "*.log",
				Exclude: []string{filepath.Join(cfg.Paths.LogDir, "quill.log")},
			})

			if !skipPreflight {
				if err := runPreflight(cmd, cfg); err != nil {
					return err
				}
			}

			lock := flock.New(filepath.Join(cfg.Paths.WorkspaceDir, "quill.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire workspace lock: %w", err)
			}
			if !locked {
				return errors.New("another captioning run is already using this workspace")
			}
			defer lock.Unlock() //nolint:errcheck

			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run store: %w", err)
			}
			defer st.Close()

			ffmpeg := cfg.FFmpegBinary()
			collab := captioner.Collaborators{
				Client:    transcribe.NewClient(cfg.Transcription),
				Extractor: audio.NewExtractor(ffmpeg),
				Detector:  vad.NewDetector(ffmpeg, cfg.VAD, logger),
			}
			if cfg.Scrub.Enabled {
				collab.Scrubber = scrub.NewScrubber(cfg.Scrub, logger)
			}

			svc := captioner.NewService(cfg, st, logger, collab)
			result, err := svc.Run(cmd.Context(), captioner.RunRequest{
				SourcePath: source,
				OutputDir:  outputDir,
				Language:   language,
			})
			if err != nil {
				return err
			}

			printRunSummary(cmd, *result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory to write the subtitle file to")
	cmd.Flags().StringVar(&language, "language", "", "Spoken-language hint override (e.g. en, japanese)")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip environment checks before captioning")

	return cmd
}

// runPreflight prints every check result and fails when any check does.
func runPreflight(cmd *cobra.Command, cfg *config.Config) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	results := preflight.RunAll(cmd.Context(), cfg)
	for _, result := range results {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	if failed := preflight.Failed(results); len(failed) > 0 {
		return fmt.Errorf("%d preflight check(s) failed", len(failed))
	}
	return nil
}

func printRunSummary(cmd *cobra.Command, result captioner.RunResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Captioning complete")
	fmt.Fprintf(out, "  Run:      %s\n", shortRunID(result.RunID))
	fmt.Fprintf(out, "  Title:    %s\n", result.Title)
	fmt.Fprintf(out, "  Duration: %s\n", formatMediaClock(result.MediaDuration))
	fmt.Fprintf(out, "  Chunks:   %d\n", result.ChunkCount)
	fmt.Fprintf(out, "  Captions: %d\n", result.CaptionCount)
	fmt.Fprintf(out, "  Gaps:     %d (%d repaired, %d exhausted)\n", result.GapCount, result.RepairedGaps, result.ExhaustedGaps)
	fmt.Fprintf(out, "  SRT:      %s\n", result.SRTPath)
}
