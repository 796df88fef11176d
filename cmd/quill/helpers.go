package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quill/internal/store"
)

// resolveRun maps a CLI run argument to a stored run. An empty argument or
// the literal "latest" selects the most recent run; anything else is treated
// as a run ID or unambiguous ID prefix.
func resolveRun(ctx context.Context, st *store.Store, arg string) (*store.Run, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" || strings.EqualFold(arg, "latest") {
		run, err := st.LatestRun(ctx)
		if err != nil {
			return nil, err
		}
		if run == nil {
			return nil, errors.New("no captioning runs recorded yet")
		}
		return run, nil
	}

	run, err := st.GetRun(ctx, arg)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %q not found", arg)
	}
	return run, nil
}

func optionalRunArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
