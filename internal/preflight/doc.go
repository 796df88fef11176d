// Package preflight provides readiness checks for the transcription API,
// external binaries, and filesystem paths that quill depends on.
//
// These checks run in two contexts:
//   - The caption command calls RunAll before extracting audio. If any
//     check fails, the run aborts instead of failing mid-transcription.
//   - The "quill deps" command uses CheckSystemDeps and the individual
//     check functions to display environment health.
package preflight
