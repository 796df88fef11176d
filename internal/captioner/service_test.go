package captioner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quill/internal/config"
	"quill/internal/logging"
	"quill/internal/media/ffprobe"
	"quill/internal/services"
	"quill/internal/store"
	"quill/internal/testsupport"
)

func stubInspect(t *testing.T, result ffprobe.Result, err error) {
	t.Helper()
	prev := inspectMedia
	inspectMedia = func(context.Context, string, string) (ffprobe.Result, error) {
		return result, err
	}
	t.Cleanup(func() { inspectMedia = prev })
}

func stereoProbe(duration string) ffprobe.Result {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{
			{Index: 0, CodecType: "video", CodecName: "h264"},
			{Index: 1, CodecType: "audio", CodecName: "aac", Channels: 2},
		},
		Format: ffprobe.Format{Duration: duration},
	}
}

// cannedResult returns three confident words at 1.0-3.0s, chunk relative.
func cannedResult() TranscriptionResult {
	return TranscriptionResult{
		Segments: []ModelSegment{{Start: 0.9, End: 3.0, AvgLogProb: -0.25, NoSpeechProb: 0.05}},
		Words: []Word{
			makeWord("hello", 1.0, 1.4),
			makeWord("there", 1.5, 2.0),
			makeWord("friend", 2.1, 3.0),
		},
	}
}

func newTestService(t *testing.T, cfg *config.Config, collab Collaborators) (*Service, *store.Store) {
	t.Helper()
	st := testsupport.MustOpenStore(t, cfg)
	return NewService(cfg, st, logging.NewNop(), collab), st
}

func TestServiceRunEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := filepath.Join(testsupport.BaseDir(cfg), "show.mkv")
	testsupport.WriteFile(t, source, 256)
	stubInspect(t, stereoProbe("10.000000"), nil)

	client := &fakeClient{result: cannedResult()}
	extractor := &fakeExtractor{}
	detector := &fakeDetector{intervals: []SpeechInterval{{Start: 0.5, End: 9.5}}}
	svc, st := newTestService(t, cfg, Collaborators{Client: client, Extractor: extractor, Detector: detector})

	res, err := svc.Run(context.Background(), RunRequest{SourcePath: source})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// One 10s chunk yields "hello there friend" at 1-3s. VAD speech to 9.5s
	// leaves a 6.5s uncovered tail, which repair recovers at 4-6s.
	if res.ChunkCount != 1 || res.CaptionCount != 2 || res.GapCount != 1 {
		t.Fatalf("result = %+v, want 1 chunk, 2 captions, 1 gap", res)
	}
	if res.RepairedGaps != 1 || res.ExhaustedGaps != 0 {
		t.Fatalf("result = %+v, want 1 repaired and 0 exhausted", res)
	}
	if !almostEqual(res.MediaDuration, 10) {
		t.Fatalf("media duration = %.3f, want 10", res.MediaDuration)
	}

	data, err := os.ReadFile(res.SRTPath)
	if err != nil {
		t.Fatalf("read SRT: %v", err)
	}
	if !strings.Contains(string(data), "hello there friend") {
		t.Fatalf("SRT missing caption text:\n%s", data)
	}
	wantName := filepath.Join(cfg.Paths.OutputDir, "show.en.srt")
	if res.SRTPath != wantName {
		t.Fatalf("SRT path = %q, want %q", res.SRTPath, wantName)
	}

	ctx := context.Background()
	run, err := st.GetRun(ctx, res.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != store.StatusCompleted {
		t.Fatalf("run status = %q, want %q", run.Status, store.StatusCompleted)
	}
	if run.CaptionCount != 2 || run.ChunkCount != 1 || run.GapCount != 1 || run.RepairedCount != 1 {
		t.Fatalf("run counters = %+v", run)
	}
	if run.SRTPath != res.SRTPath || run.ErrorMessage != "" {
		t.Fatalf("run record = %+v", run)
	}

	caps, err := st.CaptionsForRun(ctx, res.RunID)
	if err != nil {
		t.Fatalf("CaptionsForRun: %v", err)
	}
	if len(caps) != 2 {
		t.Fatalf("got %d caption rows, want 2", len(caps))
	}
	if caps[0].Origin != store.OriginChunk || caps[1].Origin != store.OriginRepair {
		t.Fatalf("origins = [%q, %q], want [chunk, repair]", caps[0].Origin, caps[1].Origin)
	}
	if !almostEqual(caps[0].Start, 1.0) || !almostEqual(caps[1].Start, 4.0) {
		t.Fatalf("caption starts = [%.3f, %.3f], want [1.000, 4.000]", caps[0].Start, caps[1].Start)
	}
	if caps[0].WordsJSON == "" || caps[1].WordsJSON == "" {
		t.Fatal("expected word timings persisted for both captions")
	}

	gaps, err := st.GapsForRun(ctx, res.RunID)
	if err != nil {
		t.Fatalf("GapsForRun: %v", err)
	}
	if len(gaps) != 1 || gaps[0].Outcome != store.GapRepaired {
		t.Fatalf("gap rows = %+v, want one repaired", gaps)
	}
	if !almostEqual(gaps[0].Start, 3.0) || !almostEqual(gaps[0].End, 9.5) {
		t.Fatalf("gap range = [%.3f, %.3f], want [3.000, 9.500]", gaps[0].Start, gaps[0].End)
	}

	// Prompts: bare sentinel for the first chunk, neighbor text for repair.
	if len(client.requests) != 2 {
		t.Fatalf("client called %d times, want 2", len(client.requests))
	}
	if client.requests[0].Prompt != silenceSentinel {
		t.Fatalf("chunk prompt = %q, want bare sentinel", client.requests[0].Prompt)
	}
	if client.requests[1].Prompt != "hello there friend "+silenceSentinel {
		t.Fatalf("repair prompt = %q, want neighbor text with sentinel", client.requests[1].Prompt)
	}
	if client.requests[0].Language != "en" {
		t.Fatalf("language = %q, want %q", client.requests[0].Language, "en")
	}

	if extractor.trackCalls != 1 {
		t.Fatalf("track extracted %d times, want 1", extractor.trackCalls)
	}
	runDir := filepath.Join(cfg.Paths.WorkspaceDir, res.RunID)
	if _, err := os.Stat(runDir); !os.IsNotExist(err) {
		t.Fatalf("run workspace %s not drained: %v", runDir, err)
	}
}

func TestServiceRunRecordsExhaustedGap(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := filepath.Join(testsupport.BaseDir(cfg), "show.mkv")
	testsupport.WriteFile(t, source, 256)
	stubInspect(t, stereoProbe("10.000000"), nil)

	// The chunk call succeeds; every repair attempt comes back empty, so the
	// trailing gap retries once along detected speech and then exhausts.
	client := &fakeClient{}
	client.respond = func(TranscriptionRequest) (TranscriptionResult, error) {
		if len(client.requests) == 1 {
			return cannedResult(), nil
		}
		return TranscriptionResult{}, nil
	}
	detector := &fakeDetector{intervals: []SpeechInterval{{Start: 0.5, End: 9.5}}}
	svc, st := newTestService(t, cfg, Collaborators{Client: client, Extractor: &fakeExtractor{}, Detector: detector})

	res, err := svc.Run(context.Background(), RunRequest{SourcePath: source})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.CaptionCount != 1 || res.RepairedGaps != 0 || res.ExhaustedGaps != 1 {
		t.Fatalf("result = %+v, want 1 caption, 0 repaired, 1 exhausted", res)
	}
	if len(client.requests) != 3 {
		t.Fatalf("client called %d times, want 3 (chunk, gap, retry)", len(client.requests))
	}

	gaps, err := st.GapsForRun(context.Background(), res.RunID)
	if err != nil {
		t.Fatalf("GapsForRun: %v", err)
	}
	if len(gaps) != 1 || gaps[0].Outcome != store.GapExhausted {
		t.Fatalf("gap rows = %+v, want one exhausted", gaps)
	}

	data, err := os.ReadFile(res.SRTPath)
	if err != nil {
		t.Fatalf("read SRT: %v", err)
	}
	if strings.Count(string(data), "hello there friend") != 1 {
		t.Fatalf("SRT should carry exactly the chunk caption:\n%s", data)
	}
}

func TestServiceRunFailsWhenTrackExtractionFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := filepath.Join(testsupport.BaseDir(cfg), "show.mkv")
	testsupport.WriteFile(t, source, 256)
	stubInspect(t, stereoProbe("10.000000"), nil)

	extractor := &fakeExtractor{trackErr: errors.New("ffmpeg exit 1")}
	svc, st := newTestService(t, cfg, Collaborators{Client: &fakeClient{}, Extractor: extractor, Detector: &fakeDetector{}})

	_, err := svc.Run(context.Background(), RunRequest{SourcePath: source})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want services.ErrExternalTool", err)
	}

	run, err := st.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if run == nil {
		t.Fatal("expected a run record")
	}
	if run.Status != store.StatusFailed {
		t.Fatalf("run status = %q, want %q", run.Status, store.StatusFailed)
	}
	if run.ErrorMessage == "" {
		t.Fatal("expected the failure recorded on the run")
	}
}

func TestServiceRunPropagatesCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := filepath.Join(testsupport.BaseDir(cfg), "show.mkv")
	testsupport.WriteFile(t, source, 256)
	stubInspect(t, stereoProbe("10.000000"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{}
	client.respond = func(TranscriptionRequest) (TranscriptionResult, error) {
		cancel()
		return TranscriptionResult{}, errors.New("request aborted")
	}
	svc, st := newTestService(t, cfg, Collaborators{Client: client, Extractor: &fakeExtractor{}, Detector: &fakeDetector{}})

	_, err := svc.Run(ctx, RunRequest{SourcePath: source})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	run, err := st.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if run == nil || run.Status != store.StatusFailed {
		t.Fatalf("run = %+v, want recorded failure", run)
	}
}

func TestServiceRunRejectsMissingSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc, st := newTestService(t, cfg, Collaborators{Client: &fakeClient{}, Extractor: &fakeExtractor{}, Detector: &fakeDetector{}})

	_, err := svc.Run(context.Background(), RunRequest{SourcePath: filepath.Join(testsupport.BaseDir(cfg), "missing.mkv")})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want services.ErrNotFound", err)
	}

	run, err := st.LatestRun(context.Background())
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if run != nil {
		t.Fatalf("no run should be recorded before validation passes, got %+v", run)
	}
}

func TestServiceRunKeepsDebugArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithDebugArtifacts())
	source := filepath.Join(testsupport.BaseDir(cfg), "show.mkv")
	testsupport.WriteFile(t, source, 256)
	stubInspect(t, stereoProbe("10.000000"), nil)

	client := &fakeClient{result: cannedResult()}
	detector := &fakeDetector{intervals: []SpeechInterval{{Start: 0.5, End: 9.5}}}
	svc, _ := newTestService(t, cfg, Collaborators{Client: client, Extractor: &fakeExtractor{}, Detector: detector})

	res, err := svc.Run(context.Background(), RunRequest{SourcePath: source})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(cfg.Paths.ArtifactDir, res.RunID))
	if err != nil {
		t.Fatalf("read artifact dir: %v", err)
	}
	if len(entries) < 3 {
		t.Fatalf("got %d artifacts, want at least track, chunk, and repair audio", len(entries))
	}

	runDir := filepath.Join(cfg.Paths.WorkspaceDir, res.RunID)
	if _, err := os.Stat(runDir); !os.IsNotExist(err) {
		t.Fatalf("run workspace %s not drained: %v", runDir, err)
	}
}

func TestPlanChunks(t *testing.T) {
	cases := []struct {
		name         string
		duration     float64
		chunkSeconds float64
		want         [][2]float64
	}{
		{"single short chunk", 10, 300, [][2]float64{{0, 10}}},
		{"even split", 300, 120, [][2]float64{{0, 120}, {120, 240}, {240, 300}}},
		{"exact multiple", 240, 120, [][2]float64{{0, 120}, {120, 240}}},
		{"tiny tail folded into previous", 240.2, 120, [][2]float64{{0, 120}, {120, 240.2}}},
		{"tail above threshold kept", 240.5, 120, [][2]float64{{0, 120}, {120, 240}, {240, 240.5}}},
		{"zero duration", 0, 120, nil},
		{"zero chunk size", 100, 0, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := planChunks(tc.duration, tc.chunkSeconds)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d windows %v, want %d", len(got), got, len(tc.want))
			}
			for i, w := range got {
				if !almostEqual(w.Start, tc.want[i][0]) || !almostEqual(w.End, tc.want[i][1]) {
					t.Fatalf("window %d = [%.3f, %.3f], want [%.3f, %.3f]", i, w.Start, w.End, tc.want[i][0], tc.want[i][1])
				}
			}
		})
	}
}

func TestRepairTargets(t *testing.T) {
	tuning := config.Captioner{
		MinGapForRepairSeconds: 5,
		MaxRepairChunkSeconds:  15,
		MinRepairChunkSeconds:  2,
	}

	t.Run("overlapping candidates keep the earliest", func(t *testing.T) {
		coverage := []Gap{{Start: 10, End: 16}}
		between := []Gap{{Start: 12, End: 18}}
		got := repairTargets(coverage, between, tuning)
		assertGaps(t, got, [][2]float64{{10, 16}})
	})

	t.Run("short coverage gaps are dropped", func(t *testing.T) {
		coverage := []Gap{{Start: 0, End: 3}}
		between := []Gap{{Start: 20, End: 28}}
		got := repairTargets(coverage, between, tuning)
		assertGaps(t, got, [][2]float64{{20, 28}})
	})

	t.Run("long coverage gaps are chopped", func(t *testing.T) {
		coverage := []Gap{{Start: 0, End: 40}}
		got := repairTargets(coverage, nil, tuning)
		assertGaps(t, got, [][2]float64{{0, 15}, {15, 30}, {30, 40}})
	})

	t.Run("disjoint candidates sorted by start", func(t *testing.T) {
		coverage := []Gap{{Start: 50, End: 56}}
		between := []Gap{{Start: 20, End: 28}}
		got := repairTargets(coverage, between, tuning)
		assertGaps(t, got, [][2]float64{{20, 28}, {50, 56}})
	})
}
