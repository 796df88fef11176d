// Package audio selects the dialogue track to transcribe and extracts
// audio ranges from it. Extraction always produces mono 16kHz PCM WAV,
// the input format transcription models are trained on.
package audio
