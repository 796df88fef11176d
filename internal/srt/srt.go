package srt

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Cue is one subtitle entry. Start and End are seconds from the beginning of
// the media.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// FormatTimestamp renders seconds as the SRT "HH:MM:SS,mmm" form. Negative
// values clamp to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	millis := int64(math.Round(seconds * 1000))
	hours := millis / 3_600_000
	millis -= hours * 3_600_000
	minutes := millis / 60_000
	millis -= minutes * 60_000
	secs := millis / 1000
	millis -= secs * 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ParseTimestamp reads an SRT timestamp back into seconds. A period is
// accepted in place of the standard comma.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// Render produces the full SRT document for the given cues. Cue indices are
// emitted as provided; callers number them 1-based.
func Render(cues []Cue) string {
	var b strings.Builder
	for i, cue := range cues {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(cue.Index))
		b.WriteByte('\n')
		b.WriteString(FormatTimestamp(cue.Start))
		b.WriteString(" --> ")
		b.WriteString(FormatTimestamp(cue.End))
		b.WriteByte('\n')
		b.WriteString(strings.TrimRight(cue.Text, "\n"))
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteFile renders cues to path through a temporary file so readers never
// observe a half-written subtitle file.
func WriteFile(path string, cues []Cue) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(Render(cues)), 0o644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize srt: %w", err)
	}
	return nil
}

// CountCues returns the number of cue blocks in an SRT file.
func CountCues(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read srt: %w", err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return 0, nil
	}
	count := 0
	for _, block := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(block) != "" {
			count++
		}
	}
	return count, nil
}

// Bounds returns the earliest start and latest end timestamp in an SRT file.
func Bounds(path string) (first, last float64, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, fmt.Errorf("read srt: %w", err)
	}
	first = math.Inf(1)
	found := false
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.Contains(line, "-->") {
			continue
		}
		parts := strings.Split(line, "-->")
		if len(parts) != 2 {
			continue
		}
		if start, err := ParseTimestamp(parts[0]); err == nil {
			if start < first {
				first = start
			}
			found = true
		}
		if end, err := ParseTimestamp(parts[1]); err == nil {
			if end > last {
				last = end
			}
		}
	}
	if !found {
		return 0, last, nil
	}
	return first, last, nil
}

// Validate checks a written SRT file for structural issues. The returned
// list is empty when the file looks sound; mediaSeconds of zero skips the
// duration comparison.
func Validate(path string, mediaSeconds float64) []string {
	var issues []string

	cues, err := CountCues(path)
	if err != nil {
		return append(issues, fmt.Sprintf("read_error: %v", err))
	}
	if cues == 0 {
		return append(issues, "empty_subtitle_file")
	}

	first, last, err := Bounds(path)
	if err != nil {
		issues = append(issues, fmt.Sprintf("timestamp_parse_error: %v", err))
		return issues
	}
	if first == 0 && last == 0 {
		issues = append(issues, "no_valid_timestamps")
	}
	if mediaSeconds > 0 && last > mediaSeconds+durationToleranceSeconds {
		issues = append(issues, fmt.Sprintf("ends_after_media: last=%.1fs media=%.1fs", last, mediaSeconds))
	}
	return issues
}

// Captions stamped slightly past the container duration are tolerated;
// container metadata rounds coarsely.
const durationToleranceSeconds = 2.0
