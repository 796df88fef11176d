// Package srt renders caption cues as SubRip subtitle files and validates
// the result.
package srt
