package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"quill/internal/store"
	"quill/internal/testsupport"
)

func TestCLIRunsAndShowCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	alpha := testsupport.NewRun(t, env.store, filepath.Join(env.baseDir, "Alpha Movie.mkv"), "Alpha Movie")
	alpha.Status = store.StatusCompleted
	alpha.MediaDuration = 5400.5
	alpha.ChunkCount = 19
	alpha.CaptionCount = 843
	alpha.GapCount = 5
	alpha.RepairedCount = 4
	alpha.SRTPath = filepath.Join(env.cfg.Paths.OutputDir, "Alpha Movie.en.srt")
	if err := env.store.UpdateRun(ctx, alpha); err != nil {
		t.Fatalf("update alpha: %v", err)
	}

	beta := testsupport.NewRun(t, env.store, filepath.Join(env.baseDir, "Beta Show.mkv"), "Beta Show")
	beta.Status = store.StatusFailed
	beta.ErrorMessage = "transcription API unreachable"
	if err := env.store.UpdateRun(ctx, beta); err != nil {
		t.Fatalf("update beta: %v", err)
	}

	out, _, err := runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "Alpha Movie")
	requireContains(t, out, "Beta Show")
	requireContains(t, out, "Completed")
	requireContains(t, out, "Failed")
	requireContains(t, out, "1:30:01")

	out, _, err = runCLI(t, []string{"runs", "--status", "completed"}, env.configPath)
	if err != nil {
		t.Fatalf("runs --status completed: %v", err)
	}
	requireContains(t, out, "Alpha Movie")
	if strings.Contains(out, "Beta Show") {
		t.Fatalf("expected failed run to be filtered out, got %q", out)
	}

	if _, _, err := runCLI(t, []string{"runs", "--status", "bogus"}, env.configPath); err == nil {
		t.Fatal("expected unknown status to fail")
	} else {
		requireContains(t, err.Error(), "unknown status")
	}

	out, _, err = runCLI(t, []string{"runs", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("runs --json: %v", err)
	}
	requireContains(t, out, `"status": "completed"`)
	requireContains(t, out, `"caption_count": 843`)

	out, _, err = runCLI(t, []string{"show", alpha.ID[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("show prefix: %v", err)
	}
	requireContains(t, out, alpha.ID)
	requireContains(t, out, "Alpha Movie")
	requireContains(t, out, "Completed")
	requireContains(t, out, "5 (4 repaired)")

	out, _, err = runCLI(t, []string{"show"}, env.configPath)
	if err != nil {
		t.Fatalf("show latest: %v", err)
	}
	requireContains(t, out, "Beta Show")
	requireContains(t, out, "transcription API unreachable")

	if _, _, err := runCLI(t, []string{"show", "doesnotexist"}, env.configPath); err == nil {
		t.Fatal("expected unknown run id to fail")
	} else {
		requireContains(t, err.Error(), "not found")
	}
}

func TestCLIRunsEmptyStore(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "No captioning runs recorded")

	if _, _, err := runCLI(t, []string{"show"}, env.configPath); err == nil {
		t.Fatal("expected show on empty store to fail")
	} else {
		requireContains(t, err.Error(), "no captioning runs recorded yet")
	}
}

func TestCLIClearCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	done := testsupport.NewRun(t, env.store, filepath.Join(env.baseDir, "Done.mkv"), "Done")
	done.Status = store.StatusCompleted
	if err := env.store.UpdateRun(ctx, done); err != nil {
		t.Fatalf("update done: %v", err)
	}
	active := testsupport.NewRun(t, env.store, filepath.Join(env.baseDir, "Active.mkv"), "Active")

	out, _, err := runCLI(t, []string{"clear", "--completed"}, env.configPath)
	if err != nil {
		t.Fatalf("clear --completed: %v", err)
	}
	requireContains(t, out, "Cleared 1 completed runs")

	out, _, err = runCLI(t, []string{"clear", active.ID[:8]}, env.configPath)
	if err != nil {
		t.Fatalf("clear by id: %v", err)
	}
	requireContains(t, out, "Removed run "+active.ID[:8])

	remaining, err := env.store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list after clear: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected empty store after clears, got %d runs", len(remaining))
	}

	if _, _, err := runCLI(t, []string{"clear"}, env.configPath); err == nil {
		t.Fatal("expected clear without arguments to fail")
	}
	if _, _, err := runCLI(t, []string{"clear", "--completed", "someid"}, env.configPath); err == nil {
		t.Fatal("expected clear with both id and --completed to fail")
	}
}

func TestCLIVersionCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"version"}, "")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "quill dev")
}
