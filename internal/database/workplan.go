package database

import (
	"context"
	"fmt"
	"time"

	"lessonplanner/internal/model"
	"lessonplanner/internal/schedule"
)

// GetWorkplan returns the entries of classID within [from, to] ordered by
// date and period.
func (db *DB) GetWorkplan(ctx context.Context, classID string, from, to time.Time) ([]model.WorkplanEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT class_id, date, period, unit, curriculum_ref, topic FROM workplan_entries
		 WHERE class_id = ? AND date >= ? AND date <= ?
		 ORDER BY date, period`,
		classID, schedule.FormatDate(from), schedule.FormatDate(to),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WorkplanEntry
	for rows.Next() {
		var (
			e    model.WorkplanEntry
			date string
		)
		if err := rows.Scan(&e.ClassID, &date, &e.Period, &e.Unit, &e.CurriculumRef, &e.Topic); err != nil {
			return nil, err
		}
		if e.Date, err = schedule.ParseDate(date); err != nil {
			return nil, fmt.Errorf("workplan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// BulkCreateWorkplan upserts entries of classID in one transaction; an entry
// at an existing (date, period, class) key overwrites it. Either all entries
// are written or none.
func (db *DB) BulkCreateWorkplan(ctx context.Context, classID string, entries []model.WorkplanEntry) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO workplan_entries (class_id, date, period, unit, curriculum_ref, topic, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, period, class_id) DO UPDATE SET
			unit = excluded.unit,
			curriculum_ref = excluded.curriculum_ref,
			topic = excluded.topic,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, e := range entries {
		_, err := stmt.ExecContext(ctx, classID, schedule.FormatDate(e.Date), e.Period,
			e.Unit, e.CurriculumRef, e.Topic, now, now)
		if err != nil {
			if isForeignKeyErr(err) {
				return 0, fmt.Errorf("%w: %s", ErrUnknownClass, classID)
			}
			return 0, fmt.Errorf("upsert workplan entry %s#%d: %w", schedule.FormatDate(e.Date), e.Period, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	db.logger.Debug().Str("class_id", classID).Int("count", len(entries)).Msg("workplan upserted")
	return len(entries), nil
}
