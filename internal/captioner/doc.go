// Package captioner turns a media file into timed caption segments through
// chunked transcription, gap detection, and gap repair.
//
// The pipeline extracts a mono 16 kHz audio track, transcribes it in
// fixed-size chunks, and rebuilds caption timing from per-word timestamps
// gated by model confidence. Speech the chunk pass missed is found by
// comparing caption coverage against detected speech intervals and against
// the silences between adjacent captions; each hole is retried with
// narrowing scope until captions are recovered or the range is exhausted.
// The engine never fabricates text for a range it cannot transcribe.
//
// External collaborators (transcription API, speech detection, audio
// extraction, hallucination scrubbing) enter through interfaces declared in
// this package so the pipeline can be exercised hermetically in tests.
package captioner
