package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"lessonplanner/internal/model"
	"lessonplanner/internal/schedule"
)

const lessonColumns = `id, class_id, date, period, topic, content, notes, is_cancelled, unit_count, created_at, updated_at`

// CreateLesson inserts a lesson with a fresh id.
func (db *DB) CreateLesson(ctx context.Context, l model.LessonRecord) (*model.LessonRecord, error) {
	now := time.Now().UTC()
	l.ID = uuid.NewString()
	l.Date = schedule.DateOf(l.Date)
	l.CreatedAt, l.UpdatedAt = now, now
	if l.UnitCount <= 0 {
		l.UnitCount = 1
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO lessons (`+lessonColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.ClassID, schedule.FormatDate(l.Date), nullPeriod(l.Period), l.Topic, l.Content, l.Notes,
		l.Cancelled, l.UnitCount, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyErr(err) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownClass, l.ClassID)
		}
		return nil, fmt.Errorf("insert lesson: %w", err)
	}
	return &l, nil
}

// GetLesson returns a lesson by id.
func (db *DB) GetLesson(ctx context.Context, id string) (*model.LessonRecord, error) {
	row := db.QueryRowContext(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = ?`, id)
	l, err := scanLesson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return l, err
}

// ListLessons returns the lessons of classID dated within [from, to], ordered
// by date, then periodized before unperiodized, then creation time.
func (db *DB) ListLessons(ctx context.Context, classID string, from, to time.Time) ([]model.LessonRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+lessonColumns+` FROM lessons
		 WHERE class_id = ? AND date >= ? AND date <= ?
		 ORDER BY date, period IS NULL, period, created_at`,
		classID, schedule.FormatDate(from), schedule.FormatDate(to),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LessonRecord
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// UpdateLesson applies patch inside a transaction. Last write wins.
func (db *DB) UpdateLesson(ctx context.Context, id string, patch model.LessonPatch) (*model.LessonRecord, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = ?`, id)
	l, err := scanLesson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	patch.Apply(l)
	l.UpdatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`UPDATE lessons SET date = ?, period = ?, topic = ?, content = ?, notes = ?,
		 is_cancelled = ?, unit_count = ?, updated_at = ? WHERE id = ?`,
		schedule.FormatDate(l.Date), nullPeriod(l.Period), l.Topic, l.Content, l.Notes,
		l.Cancelled, l.UnitCount, l.UpdatedAt, l.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update lesson: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return l, nil
}

// DeleteLesson removes a lesson.
func (db *DB) DeleteLesson(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM lessons WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanLesson(s scanner) (*model.LessonRecord, error) {
	var (
		l      model.LessonRecord
		date   string
		period sql.NullInt64
	)
	err := s.Scan(&l.ID, &l.ClassID, &date, &period, &l.Topic, &l.Content, &l.Notes,
		&l.Cancelled, &l.UnitCount, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if l.Date, err = schedule.ParseDate(date); err != nil {
		return nil, fmt.Errorf("lesson %s: %w", l.ID, err)
	}
	if period.Valid {
		l.Period = model.PeriodOf(int(period.Int64))
	}
	return &l, nil
}

func nullPeriod(p model.OptionalPeriod) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(p.Value), Valid: p.Valid}
}

func isForeignKeyErr(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return strings.Contains(err.Error(), "FOREIGN KEY")
}
