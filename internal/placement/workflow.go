// Package placement places an ordered curriculum onto a class's weekly
// schedule as workplan entries.
package placement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"lessonplanner/internal/events"
	"lessonplanner/internal/metrics"
	"lessonplanner/internal/model"
	"lessonplanner/internal/schedule"
	"lessonplanner/internal/slots"
)

// DefaultPreviewLength is how many runes of an item's content become the
// entry topic.
const DefaultPreviewLength = 120

// Item is one curriculum item.
type Item struct {
	Title   string
	Content string
}

// Request asks for Items to be placed from StartDate on.
type Request struct {
	Class     model.Class
	Title     string
	StartDate time.Time
	Items     []Item
}

// Result lists the entries that were submitted.
type Result struct {
	Entries []model.WorkplanEntry
	Created int
}

// Submitter persists workplan entries in one bulk request.
type Submitter interface {
	BulkCreateWorkplan(ctx context.Context, classID string, entries []model.WorkplanEntry) (int, error)
}

// Options configure a Workflow.
type Options struct {
	PreviewLength int
	Bus           events.Publisher
	Logger        *zerolog.Logger
}

// Workflow projects items onto slots and submits them as workplan entries.
type Workflow struct {
	projector *slots.Projector
	submitter Submitter
	preview   int
	bus       events.Publisher
	logger    *zerolog.Logger
}

// NewWorkflow creates a placement workflow.
func NewWorkflow(projector *slots.Projector, submitter Submitter, opts Options) *Workflow {
	if projector == nil {
		projector = slots.NewProjector(slots.DefaultHorizon)
	}
	if opts.PreviewLength <= 0 {
		opts.PreviewLength = DefaultPreviewLength
	}
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Workflow{
		projector: projector,
		submitter: submitter,
		preview:   opts.PreviewLength,
		bus:       opts.Bus,
		logger:    logger,
	}
}

// Draft projects the request and builds the entries without submitting them.
// A class without any scheduled period yields *model.ConfigurationError before
// projecting; a short horizon yields *slots.InsufficientCapacityError.
func (w *Workflow) Draft(req Request) ([]model.WorkplanEntry, error) {
	if strings.TrimSpace(req.Class.ID) == "" {
		return nil, errors.New("class id is required")
	}
	if len(req.Items) == 0 {
		return nil, errors.New("no items to place")
	}
	if !req.Class.Schedule.HasCapacity() {
		return nil, &model.ConfigurationError{ClassID: req.Class.ID, Reason: "weekly schedule has no periods"}
	}

	placed, err := w.projector.Project(req.Class.Schedule, req.StartDate, len(req.Items))
	if err != nil {
		metrics.IncProjection("insufficient_capacity")
		return nil, err
	}
	metrics.IncProjection("ok")

	n := len(req.Items)
	entries := make([]model.WorkplanEntry, n)
	for i, item := range req.Items {
		entries[i] = model.WorkplanEntry{
			ClassID:       req.Class.ID,
			Date:          placed[i].Date,
			Period:        placed[i].Period,
			Unit:          req.Title,
			CurriculumRef: fmt.Sprintf("item %d of %d: %s", i+1, n, itemTitle(item, req.Title)),
			Topic:         Preview(itemText(item), w.preview),
		}
	}
	return entries, nil
}

// Place drafts the entries and submits them as a single bulk request. Nothing
// is submitted unless every item found a slot.
func (w *Workflow) Place(ctx context.Context, req Request) (*Result, error) {
	entries, err := w.Draft(req)
	if err != nil {
		outcome := "invalid"
		var cfgErr *model.ConfigurationError
		var capErr *slots.InsufficientCapacityError
		switch {
		case errors.As(err, &cfgErr):
			outcome = "configuration"
		case errors.As(err, &capErr):
			outcome = "insufficient_capacity"
			w.logger.Warn().
				Str("class_id", req.Class.ID).
				Int("requested", capErr.Requested).
				Int("found", capErr.Found).
				Int("horizon_days", w.projector.Horizon()).
				Int("weekly_capacity", req.Class.Schedule.WeeklyCapacity()).
				Msg("placement aborted")
		}
		metrics.IncPlacement(outcome, 0)
		return nil, err
	}

	created, err := w.submitter.BulkCreateWorkplan(ctx, req.Class.ID, entries)
	if err != nil {
		metrics.IncPlacement("transport", 0)
		w.logger.Error().Err(err).Str("class_id", req.Class.ID).Int("count", len(entries)).Msg("bulk create failed")
		return nil, fmt.Errorf("submit workplan: %w", err)
	}
	metrics.IncPlacement("ok", created)

	w.logger.Info().
		Str("class_id", req.Class.ID).
		Str("title", req.Title).
		Int("count", created).
		Msg("workplan placed")

	if w.bus != nil {
		ev, evErr := events.New(events.WorkplanBulkCreated, events.BulkCreatedPayload{
			ClassID: req.Class.ID,
			Title:   req.Title,
			Count:   created,
			First:   schedule.FormatDate(entries[0].Date),
			Last:    schedule.FormatDate(entries[len(entries)-1].Date),
		})
		if evErr == nil {
			w.bus.Publish(ev)
		}
	}

	return &Result{Entries: entries, Created: created}, nil
}

// itemTitle names an item in its curriculum reference, falling back to the
// curriculum title for untitled items.
func itemTitle(item Item, fallback string) string {
	if t := strings.TrimSpace(item.Title); t != "" {
		return t
	}
	return fallback
}

func itemText(item Item) string {
	if strings.TrimSpace(item.Content) != "" {
		return item.Content
	}
	return item.Title
}

// Preview collapses whitespace and truncates s to max runes.
func Preview(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
