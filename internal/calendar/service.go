package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lessonplanner/internal/model"
)

// Source provides the records a grid is built from.
type Source interface {
	GetClass(ctx context.Context, classID string) (*model.Class, error)
	ListLessons(ctx context.Context, classID string, from, to time.Time) ([]model.LessonRecord, error)
	GetWorkplan(ctx context.Context, classID string, from, to time.Time) ([]model.WorkplanEntry, error)
}

// Service fetches a class's records and builds grids from the latest snapshot.
type Service struct {
	source  Source
	builder *Builder
}

// NewService creates a calendar service.
func NewService(source Source, builder *Builder) *Service {
	return &Service{source: source, builder: builder}
}

// LoadMonth fetches and builds the month grid of classID.
func (s *Service) LoadMonth(ctx context.Context, classID string, year int, month time.Month, opts Options) (*Grid, error) {
	from, to := MonthRange(year, month)
	class, lessons, entries, err := s.fetch(ctx, classID, from, to)
	if err != nil {
		return nil, err
	}
	return s.builder.Month(year, month, *class, lessons, entries, opts), nil
}

// LoadWeek fetches and builds the week grid around day.
func (s *Service) LoadWeek(ctx context.Context, classID string, day time.Time, opts Options) (*Grid, error) {
	from, to := WeekRange(day)
	class, lessons, entries, err := s.fetch(ctx, classID, from, to)
	if err != nil {
		return nil, err
	}
	return s.builder.Week(day, *class, lessons, entries, opts), nil
}

// fetch loads the class, then lessons and workplan concurrently.
func (s *Service) fetch(ctx context.Context, classID string, from, to time.Time) (*model.Class, []model.LessonRecord, []model.WorkplanEntry, error) {
	class, err := s.source.GetClass(ctx, classID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("get class: %w", err)
	}

	var (
		wg                     sync.WaitGroup
		lessons                []model.LessonRecord
		entries                []model.WorkplanEntry
		lessonsErr, entriesErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		lessons, lessonsErr = s.source.ListLessons(ctx, classID, from, to)
	}()
	go func() {
		defer wg.Done()
		entries, entriesErr = s.source.GetWorkplan(ctx, classID, from, to)
	}()
	wg.Wait()

	if lessonsErr != nil {
		return nil, nil, nil, fmt.Errorf("list lessons: %w", lessonsErr)
	}
	if entriesErr != nil {
		return nil, nil, nil, fmt.Errorf("get workplan: %w", entriesErr)
	}
	return class, lessons, entries, nil
}
