package store

import (
	"context"
	"database/sql"
	"fmt"
)

const captionColumns = "run_id, position, segment_id, start_sec, end_sec, text, avg_logprob, no_speech_prob, origin, words_json"

// ReplaceCaptions replaces the caption set for a run in one transaction.
func (s *Store) ReplaceCaptions(ctx context.Context, runID string, captions []Caption) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin captions tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM captions WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("clear captions: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO captions (
            run_id, position, segment_id, start_sec, end_sec, text,
            avg_logprob, no_speech_prob, origin, words_json
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare caption insert: %w", err)
		}
		defer stmt.Close()

		for _, caption := range captions {
			if _, err := stmt.ExecContext(ctx,
				runID,
				caption.Position,
				caption.SegmentID,
				caption.Start,
				caption.End,
				caption.Text,
				caption.AvgLogProb,
				caption.NoSpeechProb,
				caption.Origin,
				nullableString(caption.WordsJSON),
			); err != nil {
				return fmt.Errorf("insert caption %d: %w", caption.Position, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit captions: %w", err)
		}
		return nil
	})
}

// CaptionsForRun returns the caption set for a run in display order.
func (s *Store) CaptionsForRun(ctx context.Context, runID string) ([]Caption, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+captionColumns+` FROM captions WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query captions: %w", err)
	}
	defer rows.Close()

	var captions []Caption
	for rows.Next() {
		caption, err := scanCaption(rows)
		if err != nil {
			return nil, err
		}
		captions = append(captions, caption)
	}
	return captions, rows.Err()
}

// ReplaceGaps replaces the recorded gap ranges for a run.
func (s *Store) ReplaceGaps(ctx context.Context, runID string, gaps []Gap) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin gaps tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM gaps WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("clear gaps: %w", err)
		}

		for _, gap := range gaps {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO gaps (run_id, position, start_sec, end_sec, outcome) VALUES (?, ?, ?, ?, ?)`,
				runID, gap.Position, gap.Start, gap.End, gap.Outcome,
			); err != nil {
				return fmt.Errorf("insert gap %d: %w", gap.Position, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit gaps: %w", err)
		}
		return nil
	})
}

// GapsForRun returns the recorded gap ranges for a run in examination order.
func (s *Store) GapsForRun(ctx context.Context, runID string) ([]Gap, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, position, start_sec, end_sec, outcome FROM gaps WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query gaps: %w", err)
	}
	defer rows.Close()

	var gaps []Gap
	for rows.Next() {
		var gap Gap
		if err := rows.Scan(&gap.RunID, &gap.Position, &gap.Start, &gap.End, &gap.Outcome); err != nil {
			return nil, err
		}
		gaps = append(gaps, gap)
	}
	return gaps, rows.Err()
}

func scanCaption(scanner interface{ Scan(dest ...any) error }) (Caption, error) {
	var (
		caption   Caption
		origin    sql.NullString
		wordsJSON sql.NullString
	)
	if err := scanner.Scan(
		&caption.RunID,
		&caption.Position,
		&caption.SegmentID,
		&caption.Start,
		&caption.End,
		&caption.Text,
		&caption.AvgLogProb,
		&caption.NoSpeechProb,
		&origin,
		&wordsJSON,
	); err != nil {
		return Caption{}, err
	}
	caption.Origin = origin.String
	caption.WordsJSON = wordsJSON.String
	return caption, nil
}
