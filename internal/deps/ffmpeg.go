package deps

import (
	"os/exec"
	"strings"
)

// ResolveFFmpegPath returns the ffmpeg executable quill will run for audio
// extraction and silence detection. Names are resolved from PATH so status
// output shows the binary a run would actually execute; unresolvable names
// come back unchanged so error messages name what was attempted.
func ResolveFFmpegPath(configured string) string {
	return resolveBinary(configured, "ffmpeg")
}

// ResolveFFprobePath returns the ffprobe executable used for media
// inspection, resolved the same way as ResolveFFmpegPath.
func ResolveFFprobePath(configured string) string {
	return resolveBinary(configured, "ffprobe")
}

func resolveBinary(configured, fallback string) string {
	name := strings.TrimSpace(configured)
	if name == "" {
		name = fallback
	}
	if resolved, err := exec.LookPath(name); err == nil {
		return resolved
	}
	return name
}
