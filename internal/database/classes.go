package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"lessonplanner/internal/model"
)

// CreateClass inserts a class, assigning an id when empty.
func (db *DB) CreateClass(ctx context.Context, class *model.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	sched, err := json.Marshal(class.Schedule)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	now := time.Now()
	_, err = db.ExecContext(ctx,
		`INSERT INTO classes (id, name, color, schedule, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		class.ID, class.Name, class.Color, string(sched), now, now,
	)
	if err != nil {
		return fmt.Errorf("insert class: %w", err)
	}
	return nil
}

// UpdateClass replaces name, color and weekly schedule.
func (db *DB) UpdateClass(ctx context.Context, class *model.Class) error {
	sched, err := json.Marshal(class.Schedule)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	res, err := db.ExecContext(ctx,
		`UPDATE classes SET name = ?, color = ?, schedule = ?, updated_at = ? WHERE id = ?`,
		class.Name, class.Color, string(sched), time.Now(), class.ID,
	)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetClass returns a class by id.
func (db *DB) GetClass(ctx context.Context, id string) (*model.Class, error) {
	row := db.QueryRowContext(ctx, `SELECT id, name, color, schedule FROM classes WHERE id = ?`, id)
	class, err := scanClass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return class, nil
}

// ListClasses returns all classes ordered by name.
func (db *DB) ListClasses(ctx context.Context) ([]model.Class, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, color, schedule FROM classes ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Class
	for rows.Next() {
		class, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *class)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClass(s scanner) (*model.Class, error) {
	var (
		class model.Class
		sched string
	)
	if err := s.Scan(&class.ID, &class.Name, &class.Color, &sched); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sched), &class.Schedule); err != nil {
		return nil, fmt.Errorf("decode schedule of class %s: %w", class.ID, err)
	}
	return &class, nil
}
