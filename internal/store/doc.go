// Package store persists captioning runs and their results in SQLite.
//
// Each invocation of the pipeline is recorded as a run; accepted caption
// segments and the gap ranges examined during repair are stored alongside it
// so runs can be inspected and re-exported after the fact. The store owns
// schema creation and versioning, applies WAL and busy-timeout pragmas, and
// retries on SQLITE_BUSY so CLI commands can poke at the database while a run
// is writing.
package store
