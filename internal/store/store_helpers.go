package store

import (
	"database/sql"
	"errors"
	"time"
)

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id            string
		sourcePath    string
		title         sql.NullString
		statusStr     string
		mediaDuration sql.NullFloat64
		model         sql.NullString
		language      sql.NullString
		chunkCount    sql.NullInt64
		gapCount      sql.NullInt64
		repairedCount sql.NullInt64
		captionCount  sql.NullInt64
		srtPath       sql.NullString
		errorMessage  sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourcePath,
		&title,
		&statusStr,
		&mediaDuration,
		&model,
		&language,
		&chunkCount,
		&gapCount,
		&repairedCount,
		&captionCount,
		&srtPath,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:            id,
		SourcePath:    sourcePath,
		Title:         title.String,
		Status:        Status(statusStr),
		MediaDuration: mediaDuration.Float64,
		Model:         model.String,
		Language:      language.String,
		ChunkCount:    int(chunkCount.Int64),
		GapCount:      int(gapCount.Int64),
		RepairedCount: int(repairedCount.Int64),
		CaptionCount:  int(captionCount.Int64),
		SRTPath:       srtPath.String,
		ErrorMessage:  errorMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		run.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		run.UpdatedAt = updated
	}
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
