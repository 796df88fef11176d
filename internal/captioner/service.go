package captioner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"quill/internal/config"
	"quill/internal/fileutil"
	"quill/internal/identification"
	"quill/internal/language"
	"quill/internal/logging"
	"quill/internal/media/audio"
	"quill/internal/media/ffprobe"
	"quill/internal/services"
	"quill/internal/srt"
	"quill/internal/store"
)

// inspectMedia is stubbed in tests so runs can execute without ffprobe.
var inspectMedia = ffprobe.Inspect

// Collaborators bundles the external services a captioning run depends on.
type Collaborators struct {
	Client    TranscriptionClient
	Extractor MediaExtractor
	Detector  SpeechIntervalDetector
	Scrubber  HallucinationScrubber
}

// Service drives a full captioning run: probe, track selection, chunked
// transcription, gap analysis, repair, and SRT export.
type Service struct {
	cfg       *config.Config
	store     *store.Store
	logger    *slog.Logger
	client    TranscriptionClient
	extractor MediaExtractor
	detector  SpeechIntervalDetector
	scrubber  HallucinationScrubber
}

// NewService builds the captioning pipeline around explicit collaborators.
// A nil scrubber disables the hallucination pass.
func NewService(cfg *config.Config, st *store.Store, logger *slog.Logger, collab Collaborators) *Service {
	scrubber := collab.Scrubber
	if scrubber == nil {
		scrubber = NopScrubber{}
	}
	return &Service{
		cfg:       cfg,
		store:     st,
		logger:    logging.NewComponentLogger(logger, "captioner"),
		client:    collab.Client,
		extractor: collab.Extractor,
		detector:  collab.Detector,
		scrubber:  scrubber,
	}
}

// RunRequest describes one captioning invocation.
type RunRequest struct {
	// SourcePath is the media file to caption.
	SourcePath string
	// OutputDir overrides the configured subtitle destination when set.
	OutputDir string
	// Language overrides the configured spoken-language hint when set.
	Language string
}

// RunResult summarizes a finished run.
type RunResult struct {
	RunID         string
	Title         string
	SRTPath       string
	MediaDuration float64
	ChunkCount    int
	CaptionCount  int
	GapCount      int
	RepairedGaps  int
	ExhaustedGaps int
}

// runPlan carries everything prepared up front for one run.
type runPlan struct {
	run           *store.Run
	source        string
	title         string
	language      string
	mediaDuration float64
	selection     audio.Selection
	runDir        string
	outputDir     string
	tempFiles     []string
}

// Run captions one media file end to end. The run record is updated to a
// terminal status before any error is returned; temporary audio is drained
// on every path.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	plan, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	defer s.cleanupRun(plan)

	ctx = services.WithRunID(ctx, plan.run.ID)
	result, err := s.execute(ctx, plan)
	if err != nil {
		s.failRun(plan.run, err)
		return nil, err
	}
	return result, nil
}

// prepare validates the source, probes it, picks the dialogue track, and
// opens the run record plus working directories.
func (s *Service) prepare(ctx context.Context, req RunRequest) (*runPlan, error) {
	source := strings.TrimSpace(req.SourcePath)
	if source == "" {
		return nil, services.Wrap(services.ErrValidation, "captioner", "prepare", "Source path is required", nil)
	}
	source, err := filepath.Abs(source)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "captioner", "prepare", "Source path cannot be resolved", err)
	}
	info, err := os.Stat(source)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "captioner", "prepare", fmt.Sprintf("Source file not found: %s", source), err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "captioner", "prepare", "Source path is a directory", nil)
	}

	probe, err := inspectMedia(ctx, s.cfg.FFprobeBinary(), source)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "captioner", "probe", "ffprobe failed to inspect source", err)
	}
	duration := probe.DurationSeconds()
	if duration <= 0 {
		return nil, services.Wrap(services.ErrValidation, "captioner", "probe", "Source reports no playable duration", nil)
	}
	audioStreams := probe.AudioStreams()
	if len(audioStreams) == 0 {
		return nil, services.Wrap(services.ErrValidation, "captioner", "select track", "Source has no audio streams", nil)
	}

	lang := language.ToISO2(req.Language)
	if lang == "" {
		lang = language.ToISO2(s.cfg.Transcription.Language)
	}
	selection := audio.Select(audioStreams, lang)
	if selection.PrimaryIndex < 0 {
		return nil, services.Wrap(services.ErrValidation, "captioner", "select track", "No usable audio track", nil)
	}
	if lang == "" {
		lang = language.ToISO2(selection.Language)
	}
	if lang == "" {
		lang = "en"
	}

	title := identification.DeriveTitle(source)
	run, err := s.store.NewRun(ctx, source, title, s.cfg.Transcription.Model, lang)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "captioner", "record run", "Failed to create run record", err)
	}

	runDir := filepath.Join(s.cfg.Paths.WorkspaceDir, run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		wrapped := services.Wrap(services.ErrConfiguration, "captioner", "prepare workspace", "Failed to create run workspace", err)
		s.failRun(run, wrapped)
		return nil, wrapped
	}
	outputDir := strings.TrimSpace(req.OutputDir)
	if outputDir == "" {
		outputDir = s.cfg.Paths.OutputDir
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		wrapped := services.Wrap(services.ErrConfiguration, "captioner", "prepare output", "Failed to create output directory", err)
		s.failRun(run, wrapped)
		return nil, wrapped
	}

	s.logger.Info("run prepared",
		logging.String(logging.FieldRunID, run.ID),
		logging.String("title", title),
		logging.String("language", lang),
		logging.Float64("media_seconds", duration),
		logging.String("audio_track", selection.PrimaryLabel()),
	)

	return &runPlan{
		run:           run,
		source:        source,
		title:         title,
		language:      lang,
		mediaDuration: duration,
		selection:     selection,
		runDir:        runDir,
		outputDir:     outputDir,
	}, nil
}

func (s *Service) execute(ctx context.Context, plan *runPlan) (*RunResult, error) {
	log := logging.WithContext(ctx, s.logger)
	gate := QualityThresholds{
		MaxNoSpeechProb: s.cfg.Captioner.MaxNoSpeechProb,
		MinAvgLogProb:   s.cfg.Captioner.MinAvgLogProb,
	}
	transcriber := NewChunkTranscriber(s.client, s.scrubber, gate, log)

	trackPath, err := s.extractTrack(ctx, plan, log)
	if err != nil {
		return nil, err
	}

	captions, chunkCount, err := s.transcribeChunks(ctx, plan, transcriber, trackPath, log)
	if err != nil {
		return nil, err
	}

	speech, err := s.detectSpeech(ctx, trackPath, log)
	if err != nil {
		return nil, err
	}
	coverageGaps := FindGaps(speech, captions, s.cfg.Captioner.MinGapSeconds)
	betweenGaps := FindGapsBetweenCaptions(captions,
		s.cfg.Captioner.MinGapForRepairSeconds,
		s.cfg.Captioner.MaxRepairChunkSeconds,
		s.cfg.Captioner.MinRepairChunkSeconds,
	)
	targets := repairTargets(coverageGaps, betweenGaps, s.cfg.Captioner)
	log.Info("gap analysis finished",
		logging.Int("speech_intervals", len(speech)),
		logging.Int("coverage_gaps", len(coverageGaps)),
		logging.Int("caption_holes", len(betweenGaps)),
		logging.Int("repair_targets", len(targets)),
	)

	engine := NewGapRepairEngine(transcriber, s.extractor, s.detector, gate, log)
	defer func() { plan.tempFiles = append(plan.tempFiles, engine.TempFiles()...) }()

	repairedBy := make(map[string]string)
	gapRecords := make([]store.Gap, 0, len(targets))
	repairedGaps, exhaustedGaps := 0, 0
	for i, gap := range targets {
		recovered, err := engine.Repair(ctx, RepairRequest{
			Gap:           gap,
			Source:        trackPath,
			WorkDir:       plan.runDir,
			Language:      plan.language,
			MediaDuration: plan.mediaDuration,
			Neighbors:     captions,
		})
		if err != nil {
			return nil, err
		}
		outcome := store.GapExhausted
		if len(recovered) > 0 {
			outcome = store.GapRepaired
			repairedGaps++
			for _, seg := range recovered {
				repairedBy[seg.ID] = store.OriginRepair
			}
			captions = append(captions, recovered...)
		} else {
			exhaustedGaps++
		}
		gapRecords = append(gapRecords, store.Gap{
			RunID:    plan.run.ID,
			Position: i,
			Start:    gap.Start,
			End:      gap.End,
			Outcome:  outcome,
		})
	}

	sort.Slice(captions, func(i, j int) bool { return captions[i].Start < captions[j].Start })
	captions = s.scrubber.Scrub(captions, plan.mediaDuration)
	for i := range captions {
		captions[i].Index = i
	}

	if err := s.persist(ctx, plan, captions, gapRecords, repairedBy); err != nil {
		return nil, err
	}
	srtPath, err := s.export(plan, captions, log)
	if err != nil {
		return nil, err
	}

	run := plan.run
	run.Status = store.StatusCompleted
	run.MediaDuration = plan.mediaDuration
	run.ChunkCount = chunkCount
	run.GapCount = len(targets)
	run.RepairedCount = repairedGaps
	run.CaptionCount = len(captions)
	run.SRTPath = srtPath
	run.ErrorMessage = ""
	if err := s.store.UpdateRun(ctx, run); err != nil {
		return nil, services.Wrap(services.ErrTransient, "captioner", "finalize run", "Failed to record run completion", err)
	}

	log.Info("run completed",
		logging.String("srt_path", srtPath),
		logging.Int("captions", len(captions)),
		logging.Int("chunks", chunkCount),
		logging.Int("gaps_repaired", repairedGaps),
		logging.Int("gaps_exhausted", exhaustedGaps),
	)

	return &RunResult{
		RunID:         run.ID,
		Title:         plan.title,
		SRTPath:       srtPath,
		MediaDuration: plan.mediaDuration,
		ChunkCount:    chunkCount,
		CaptionCount:  len(captions),
		GapCount:      len(targets),
		RepairedGaps:  repairedGaps,
		ExhaustedGaps: exhaustedGaps,
	}, nil
}

func (s *Service) extractTrack(ctx context.Context, plan *runPlan, log *slog.Logger) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	trackPath := filepath.Join(plan.runDir, "track.wav")
	started := time.Now()
	if err := s.extractor.ExtractTrack(ctx, plan.source, plan.selection.PrimaryIndex, trackPath); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "captioner", "extract track", "Failed to extract audio track", err)
	}
	plan.tempFiles = append(plan.tempFiles, trackPath)
	log.Info("audio track extracted",
		logging.Int("stream_index", plan.selection.PrimaryIndex),
		logging.Duration("elapsed", time.Since(started)),
	)
	return trackPath, nil
}

func (s *Service) transcribeChunks(ctx context.Context, plan *runPlan, transcriber *ChunkTranscriber, trackPath string, log *slog.Logger) ([]CaptionSegment, int, error) {
	windows := planChunks(plan.mediaDuration, s.cfg.Captioner.ChunkSeconds)

	var captions []CaptionSegment
	for i, window := range windows {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		chunkPath := filepath.Join(plan.runDir, fmt.Sprintf("chunk_%03d.wav", i))
		if err := s.extractor.Extract(ctx, trackPath, chunkPath, window.Start, window.End-window.Start); err != nil {
			return nil, 0, services.Wrap(services.ErrExternalTool, "captioner", "extract chunk",
				fmt.Sprintf("Failed to cut chunk %d", i), err)
		}
		plan.tempFiles = append(plan.tempFiles, chunkPath)

		segs, err := transcriber.Transcribe(ctx, AudioChunk{
			Index:       i,
			Path:        chunkPath,
			StartOffset: window.Start,
			Duration:    window.End - window.Start,
		}, ChunkOptions{
			Prompt:        tailContext(captions, promptCaptionsPerSide, promptWordsPerSide),
			Language:      plan.language,
			MediaDuration: plan.mediaDuration,
		})
		if err != nil {
			return nil, 0, err
		}
		captions = append(captions, segs...)
		log.Info("chunk transcribed",
			logging.Int(logging.FieldChunkIndex, i),
			logging.Int("chunk_captions", len(segs)),
			logging.Int("total_captions", len(captions)),
		)
	}
	sort.Slice(captions, func(i, j int) bool { return captions[i].Start < captions[j].Start })
	return captions, len(windows), nil
}

// detectSpeech runs VAD over the extracted track. Detection failure is not
// fatal; gap analysis falls back to caption spacing alone.
func (s *Service) detectSpeech(ctx context.Context, trackPath string, log *slog.Logger) ([]SpeechInterval, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	speech, err := s.detector.Detect(ctx, trackPath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.WarnWithContext(log, "speech detection failed; coverage check limited to caption spacing", "vad_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ffmpeg availability and the extracted track"),
			logging.String(logging.FieldImpact, "speech before the first caption or after the last may go unrepaired"),
		)
		return nil, nil
	}
	return speech, nil
}

func (s *Service) persist(ctx context.Context, plan *runPlan, captions []CaptionSegment, gaps []store.Gap, repairedBy map[string]string) error {
	rows := make([]store.Caption, 0, len(captions))
	for _, seg := range captions {
		wordsJSON := ""
		if len(seg.Words) > 0 {
			if data, err := json.Marshal(seg.Words); err == nil {
				wordsJSON = string(data)
			}
		}
		origin := store.OriginChunk
		if o, ok := repairedBy[seg.ID]; ok {
			origin = o
		}
		rows = append(rows, store.Caption{
			RunID:        plan.run.ID,
			Position:     seg.Index,
			SegmentID:    seg.ID,
			Start:        seg.Start,
			End:          seg.End,
			Text:         seg.Text,
			AvgLogProb:   seg.AvgLogProb,
			NoSpeechProb: seg.NoSpeechProb,
			Origin:       origin,
			WordsJSON:    wordsJSON,
		})
	}
	if err := s.store.ReplaceCaptions(ctx, plan.run.ID, rows); err != nil {
		return services.Wrap(services.ErrTransient, "captioner", "persist captions", "Failed to store captions", err)
	}
	if err := s.store.ReplaceGaps(ctx, plan.run.ID, gaps); err != nil {
		return services.Wrap(services.ErrTransient, "captioner", "persist gaps", "Failed to store gap outcomes", err)
	}
	return nil
}

// export writes the SRT into the run workspace and moves it into the output
// directory, so readers never observe a partial file even across
// filesystems.
func (s *Service) export(plan *runPlan, captions []CaptionSegment, log *slog.Logger) (string, error) {
	baseName := strings.TrimSuffix(filepath.Base(plan.source), filepath.Ext(plan.source))
	if baseName == "" {
		baseName = plan.run.ID
	}
	fileName := fmt.Sprintf("%s.%s.srt", baseName, plan.language)

	staged := filepath.Join(plan.runDir, fileName)
	if err := srt.WriteFile(staged, toCues(captions)); err != nil {
		return "", services.Wrap(services.ErrTransient, "captioner", "write srt", "Failed to write subtitle file", err)
	}
	plan.tempFiles = append(plan.tempFiles, staged)
	final := filepath.Join(plan.outputDir, fileName)
	if err := fileutil.MoveFile(staged, final); err != nil {
		return "", services.Wrap(services.ErrTransient, "captioner", "deliver srt", "Failed to move subtitle file into output directory", err)
	}

	if issues := srt.Validate(final, plan.mediaDuration); len(issues) > 0 {
		logging.WarnWithContext(log, "exported subtitles look suspicious", "srt_validation",
			logging.String("issues", strings.Join(issues, ", ")),
			logging.String(logging.FieldErrorHint, "inspect the SRT and consider re-running"),
			logging.String(logging.FieldImpact, "subtitle file delivered but may be incomplete"),
		)
	}
	return final, nil
}

func toCues(captions []CaptionSegment) []srt.Cue {
	cues := make([]srt.Cue, 0, len(captions))
	for _, seg := range captions {
		cues = append(cues, srt.Cue{
			Index: seg.Index + 1,
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		})
	}
	return cues
}

// repairTargets merges VAD-backed holes big enough to repair with the holes
// between adjacent captions. Coverage gaps are chopped by the same bounds as
// caption holes; overlapping candidates collapse to the earliest so no range
// is extracted twice.
func repairTargets(coverageGaps, betweenGaps []Gap, tuning config.Captioner) []Gap {
	candidates := make([]Gap, 0, len(coverageGaps)+len(betweenGaps))
	for _, gap := range coverageGaps {
		if gap.Duration() < tuning.MinGapForRepairSeconds {
			continue
		}
		candidates = append(candidates, chopRange(gap.Start, gap.End, tuning.MaxRepairChunkSeconds, tuning.MinRepairChunkSeconds)...)
	}
	candidates = append(candidates, betweenGaps...)
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Start < candidates[j].Start })

	var targets []Gap
	for _, gap := range candidates {
		if len(targets) > 0 && gap.Start < targets[len(targets)-1].End {
			continue
		}
		targets = append(targets, gap)
	}
	return targets
}

// chunkWindow is one planned extraction range on the absolute timeline.
type chunkWindow struct {
	Start float64
	End   float64
}

// planChunks slices the media duration into fixed-size windows. A trailing
// sliver shorter than minTailChunkSeconds is folded into the previous window
// instead of being uploaded on its own.
func planChunks(duration, chunkSeconds float64) []chunkWindow {
	if duration <= 0 || chunkSeconds <= 0 {
		return nil
	}
	var windows []chunkWindow
	for start := 0.0; start < duration; start += chunkSeconds {
		end := start + chunkSeconds
		if end > duration {
			end = duration
		}
		windows = append(windows, chunkWindow{Start: start, End: end})
	}
	if n := len(windows); n > 1 && windows[n-1].End-windows[n-1].Start < minTailChunkSeconds {
		windows[n-2].End = windows[n-1].End
		windows = windows[:n-1]
	}
	return windows
}

// failRun records a terminal failure on the run. A fresh context is used so
// the record is written even when the run context is already cancelled.
func (s *Service) failRun(run *store.Run, cause error) {
	if run == nil {
		return
	}
	run.Status = services.FailureStatus(cause)
	run.ErrorMessage = cause.Error()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.UpdateRun(ctx, run); err != nil {
		logging.ErrorWithContext(s.logger, "failed to record run failure", "run_update_failed",
			logging.Error(err),
			logging.String(logging.FieldRunID, run.ID),
		)
	}
}

// cleanupRun drains the temporary audio recorded during the run. With debug
// artifacts enabled every file is copied into a per-run folder first.
func (s *Service) cleanupRun(plan *runPlan) {
	if s.cfg.Captioner.DebugArtifacts && len(plan.tempFiles) > 0 {
		dir := filepath.Join(s.cfg.Paths.ArtifactDir, plan.run.ID)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logging.WarnWithContext(s.logger, "cannot create artifact directory", "artifact_dir_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check artifact_dir permissions"),
				logging.String(logging.FieldImpact, "debug audio not kept for this run"),
			)
		} else {
			for _, path := range plan.tempFiles {
				if err := fileutil.CopyFile(path, filepath.Join(dir, filepath.Base(path))); err != nil && !os.IsNotExist(err) {
					s.logger.Debug("artifact copy failed", logging.String("path", path), logging.Error(err))
				}
			}
		}
	}
	for _, path := range plan.tempFiles {
		_ = os.Remove(path)
	}
	// Removes the run directory only once it is empty.
	_ = os.Remove(plan.runDir)
}
