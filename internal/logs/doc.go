// Package logs provides file tailing with bounded memory usage.
//
// It supports negative offsets for "tail last N lines" operations and
// follow-mode polling for `quill logs -f`. Callers supply context deadlines
// so polling shuts down cleanly when the CLI exits.
package logs
