// Package prefs stores per-user calendar preferences outside the scheduling
// core.
package prefs

import (
	"context"
	"errors"
	"fmt"

	"lessonplanner/internal/calendar"
	"lessonplanner/internal/drag"
)

// ErrNotFound is returned when a user has no stored preferences.
var ErrNotFound = errors.New("preferences not found")

// Preferences tune how the calendar is rendered and how drags treat periods.
type Preferences struct {
	View         calendar.View     `json:"view"`
	ShowWeekends bool              `json:"show_weekends"`
	PeriodPolicy drag.PeriodPolicy `json:"period_policy"`
	LastClassID  string            `json:"last_class_id,omitempty"`
}

// Defaults are used for users without stored preferences.
func Defaults() Preferences {
	return Preferences{View: calendar.ViewMonth, ShowWeekends: true, PeriodPolicy: drag.PolicyKeep}
}

// Validate rejects unknown views and policies.
func (p Preferences) Validate() error {
	if p.View != calendar.ViewMonth && p.View != calendar.ViewWeek {
		return fmt.Errorf("unknown view %q", p.View)
	}
	if _, err := drag.ParsePeriodPolicy(string(p.PeriodPolicy)); err != nil {
		return err
	}
	return nil
}

// GridOptions derives calendar options.
func (p Preferences) GridOptions() calendar.Options {
	return calendar.Options{HideWeekends: !p.ShowWeekends}
}

// Store persists preferences by user id.
type Store interface {
	Get(ctx context.Context, userID string) (*Preferences, error)
	Set(ctx context.Context, userID string, p Preferences) error
	Delete(ctx context.Context, userID string) error
}

// Load returns the user's preferences or the defaults when none are stored.
func Load(ctx context.Context, s Store, userID string) (Preferences, error) {
	p, err := s.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return Defaults(), err
	}
	return *p, nil
}
