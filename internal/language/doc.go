// Package language normalizes language identifiers across the places they
// appear: config values, container stream tags, and transcription API
// parameters. Stream metadata mixes ISO 639-1, ISO 639-2, and full word
// forms, so comparisons funnel through ToISO2.
package language
