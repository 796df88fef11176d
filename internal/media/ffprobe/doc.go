// Package ffprobe wraps the ffprobe binary to inspect media containers
// before captioning: container duration, audio stream inventory, and the
// per-stream metadata (language tags, channel layout, disposition) the
// track selector needs.
package ffprobe
