package placement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lessonplanner/internal/events"
	"lessonplanner/internal/model"
	"lessonplanner/internal/schedule"
	"lessonplanner/internal/slots"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) BulkCreateWorkplan(ctx context.Context, classID string, entries []model.WorkplanEntry) (int, error) {
	args := m.Called(ctx, classID, entries)
	return args.Int(0), args.Error(1)
}

func newWorkflow(p *slots.Projector, s Submitter, bus events.Publisher) *Workflow {
	logger := zerolog.New(io.Discard)
	return NewWorkflow(p, s, Options{Bus: bus, Logger: &logger})
}

func items(n int) []Item {
	out := make([]Item, n)
	for i := range out {
		out[i] = Item{Title: fmt.Sprintf("Teil %d", i+1), Content: strings.Repeat("x", i+1)}
	}
	return out
}

func TestPlaceMatchesProjection(t *testing.T) {
	ctx := context.Background()
	class := model.Class{ID: "c1", Schedule: schedule.MustNew(map[time.Weekday][]int{
		time.Monday:    {1, 2},
		time.Wednesday: {3},
	})}
	start := date(2026, 3, 2)

	want, err := slots.Project(class.Schedule, start, 3)
	require.NoError(t, err)

	sub := new(mockSubmitter)
	sub.On("BulkCreateWorkplan", ctx, "c1", mock.MatchedBy(func(e []model.WorkplanEntry) bool { return len(e) == 3 })).
		Return(3, nil).Once()

	bus := events.NewBus()
	var created []events.Event
	bus.Subscribe(events.WorkplanBulkCreated, func(e events.Event) error {
		created = append(created, e)
		return nil
	})

	res, err := newWorkflow(nil, sub, bus).Place(ctx, Request{Class: class, Title: "Bruchrechnung", StartDate: start, Items: items(3)})
	require.NoError(t, err)
	require.Len(t, res.Entries, 3)
	assert.Equal(t, 3, res.Created)

	for i, e := range res.Entries {
		assert.Equal(t, want[i].Date, e.Date)
		assert.Equal(t, want[i].Period, e.Period)
		assert.Equal(t, "c1", e.ClassID)
		assert.Equal(t, "Bruchrechnung", e.Unit)
	}
	assert.Equal(t, "item 1 of 3: Teil 1", res.Entries[0].CurriculumRef)
	assert.Equal(t, "item 3 of 3: Teil 3", res.Entries[2].CurriculumRef)
	assert.Equal(t, "xxx", res.Entries[2].Topic)
	sub.AssertExpectations(t)

	require.Len(t, created, 1)
	var payload events.BulkCreatedPayload
	require.NoError(t, created[0].Decode(&payload))
	assert.Equal(t, "2026-03-02", payload.First)
	assert.Equal(t, "2026-03-04", payload.Last)
}

func TestPlaceAbortsWithoutCapacity(t *testing.T) {
	// one period per week and a two week horizon give exactly two slots
	class := model.Class{ID: "c1", Schedule: schedule.MustNew(map[time.Weekday][]int{time.Friday: {4}})}
	sub := new(mockSubmitter)

	_, err := newWorkflow(slots.NewProjector(14), sub, nil).Place(context.Background(),
		Request{Class: class, Title: "Gedichte", StartDate: date(2026, 3, 2), Items: items(3)})

	var capErr *slots.InsufficientCapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 2, capErr.Found)
	sub.AssertNotCalled(t, "BulkCreateWorkplan", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceRejectsEmptySchedule(t *testing.T) {
	sub := new(mockSubmitter)
	_, err := newWorkflow(nil, sub, nil).Place(context.Background(),
		Request{Class: model.Class{ID: "c1"}, Title: "x", StartDate: date(2026, 3, 2), Items: items(1)})

	var cfgErr *model.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "c1", cfgErr.ClassID)
	sub.AssertNotCalled(t, "BulkCreateWorkplan", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceSubmitFailure(t *testing.T) {
	class := model.Class{ID: "c1", Schedule: schedule.MustNew(map[time.Weekday][]int{time.Monday: {1}})}
	sub := new(mockSubmitter)
	sub.On("BulkCreateWorkplan", mock.Anything, "c1", mock.Anything).
		Return(0, &model.TransportError{Op: "bulk create workplan", Err: errors.New("refused")}).Once()

	res, err := newWorkflow(nil, sub, nil).Place(context.Background(),
		Request{Class: class, Title: "x", StartDate: date(2026, 3, 2), Items: items(2)})
	assert.Nil(t, res)
	assert.True(t, model.IsTransport(err))
}

func TestDraftValidation(t *testing.T) {
	w := newWorkflow(nil, new(mockSubmitter), nil)
	class := model.Class{ID: "c1", Schedule: schedule.MustNew(map[time.Weekday][]int{time.Monday: {1}})}

	_, err := w.Draft(Request{Class: class})
	assert.EqualError(t, err, "no items to place")

	_, err = w.Draft(Request{Class: model.Class{}, Items: items(1)})
	assert.EqualError(t, err, "class id is required")
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "Einführung", 120, "Einführung"},
		{"whitespace", "  Satz\n\tglieder  ", 120, "Satz glieder"},
		{"runes", "ÄÖÜäöüß", 3, "ÄÖÜ"},
		{"unbounded", "abc", 0, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preview(tt.in, tt.max))
		})
	}
}

func TestDraftCurriculumRef(t *testing.T) {
	class := model.Class{ID: "c1", Schedule: schedule.MustNew(map[time.Weekday][]int{time.Monday: {1, 2, 3}})}
	tests := []struct {
		name string
		item Item
		want string
	}{
		{"item title", Item{Title: "Winkel", Content: "Winkel messen"}, "item 1 of 1: Winkel"},
		{"untitled item uses curriculum title", Item{Content: "Dreiecke zeichnen"}, "item 1 of 1: Geometrie"},
		{"blank title", Item{Title: "  ", Content: "Kreise"}, "item 1 of 1: Geometrie"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := newWorkflow(nil, new(mockSubmitter), nil).Draft(Request{
				Class: class, Title: "Geometrie", StartDate: date(2026, 3, 2), Items: []Item{tt.item},
			})
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.want, entries[0].CurriculumRef)
			assert.Equal(t, "Geometrie", entries[0].Unit)
		})
	}
}
