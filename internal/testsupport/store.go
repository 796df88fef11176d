package testsupport

import (
	"context"
	"testing"

	"quill/internal/config"
	"quill/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewRun creates a run record for tests using the provided store.
func NewRun(t testing.TB, st *store.Store, sourcePath, title string) *store.Run {
	t.Helper()

	run, err := st.NewRun(context.Background(), sourcePath, title, "whisper-1", "en")
	if err != nil {
		t.Fatalf("store.NewRun: %v", err)
	}
	return run
}
