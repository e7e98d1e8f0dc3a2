package model

import (
	"encoding/json"
	"strings"
	"time"

	"lessonplanner/internal/schedule"
)

// WorkplanEntryDTO is the wire shape of a workplan entry.
type WorkplanEntryDTO struct {
	Date               string         `json:"date"`
	Period             OptionalPeriod `json:"period"`
	Unterrichtseinheit string         `json:"unterrichtseinheit"`
	Lehrplan           string         `json:"lehrplan"`
	Stundenthema       string         `json:"stundenthema"`
}

// BulkWorkplanRequest is the body of POST /workplan/{classId}/bulk.
type BulkWorkplanRequest struct {
	Entries []WorkplanEntryDTO `json:"entries"`
}

// BulkWorkplanResponse reports how many entries were written.
type BulkWorkplanResponse struct {
	Created int `json:"created"`
}

// WorkplanToDTO converts an entry to its wire shape.
func WorkplanToDTO(w WorkplanEntry) WorkplanEntryDTO {
	return WorkplanEntryDTO{
		Date:               schedule.FormatDate(w.Date),
		Period:             PeriodOf(w.Period),
		Unterrichtseinheit: w.Unit,
		Lehrplan:           w.CurriculumRef,
		Stundenthema:       w.Topic,
	}
}

// Entry validates the DTO and converts it for classID.
func (d WorkplanEntryDTO) Entry(classID string) (WorkplanEntry, error) {
	verr := &ValidationError{}
	date, err := schedule.ParseDate(d.Date)
	if err != nil {
		verr.add("date", err.Error())
	}
	if !d.Period.Valid {
		verr.add("period", "required")
	}
	if err := verr.orNil(); err != nil {
		return WorkplanEntry{}, err
	}
	return WorkplanEntry{
		ClassID:       classID,
		Date:          date,
		Period:        d.Period.Value,
		Unit:          d.Unterrichtseinheit,
		CurriculumRef: d.Lehrplan,
		Topic:         d.Stundenthema,
	}, nil
}

// LessonDTO is the wire shape of a lesson.
type LessonDTO struct {
	ID        string         `json:"id,omitempty"`
	ClassID   string         `json:"class_id"`
	Date      string         `json:"date"`
	Period    OptionalPeriod `json:"period"`
	Topic     string         `json:"topic"`
	Content   string         `json:"content,omitempty"`
	Notes     string         `json:"notes,omitempty"`
	Cancelled bool           `json:"is_cancelled"`
	UnitCount int            `json:"unit_count"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
}

// LessonToDTO converts a lesson to its wire shape.
func LessonToDTO(l LessonRecord) LessonDTO {
	dto := LessonDTO{
		ID:        l.ID,
		ClassID:   l.ClassID,
		Date:      schedule.FormatDate(l.Date),
		Period:    l.Period,
		Topic:     l.Topic,
		Content:   l.Content,
		Notes:     l.Notes,
		Cancelled: l.Cancelled,
		UnitCount: l.UnitCount,
	}
	if !l.CreatedAt.IsZero() {
		created := l.CreatedAt
		dto.CreatedAt = &created
	}
	if !l.UpdatedAt.IsZero() {
		updated := l.UpdatedAt
		dto.UpdatedAt = &updated
	}
	return dto
}

// Lesson validates the DTO and converts it.
func (d LessonDTO) Lesson() (LessonRecord, error) {
	verr := &ValidationError{}
	if strings.TrimSpace(d.ClassID) == "" {
		verr.add("class_id", "required")
	}
	date, err := schedule.ParseDate(d.Date)
	if err != nil {
		verr.add("date", err.Error())
	}
	if d.UnitCount < 0 {
		verr.add("unit_count", "cannot be negative")
	}
	if err := verr.orNil(); err != nil {
		return LessonRecord{}, err
	}

	l := LessonRecord{
		ID:        d.ID,
		ClassID:   d.ClassID,
		Date:      date,
		Period:    d.Period,
		Topic:     d.Topic,
		Content:   d.Content,
		Notes:     d.Notes,
		Cancelled: d.Cancelled,
		UnitCount: d.UnitCount,
	}
	if l.UnitCount == 0 {
		l.UnitCount = 1
	}
	if d.CreatedAt != nil {
		l.CreatedAt = *d.CreatedAt
	}
	if d.UpdatedAt != nil {
		l.UpdatedAt = *d.UpdatedAt
	}
	return l, nil
}

// LessonPatch is the body of PUT /lessons/{id}. Nil fields are left
// untouched; a non-nil Period with Valid=false clears the period.
type LessonPatch struct {
	Date      *time.Time
	Period    *OptionalPeriod
	Topic     *string
	Content   *string
	Notes     *string
	Cancelled *bool
	UnitCount *int
}

// ReschedulePatch is the drag request: only the date changes.
func ReschedulePatch(date time.Time) LessonPatch {
	d := schedule.DateOf(date)
	return LessonPatch{Date: &d}
}

// Apply writes the set fields onto l.
func (p LessonPatch) Apply(l *LessonRecord) {
	if p.Date != nil {
		l.Date = schedule.DateOf(*p.Date)
	}
	if p.Period != nil {
		l.Period = *p.Period
	}
	if p.Topic != nil {
		l.Topic = *p.Topic
	}
	if p.Content != nil {
		l.Content = *p.Content
	}
	if p.Notes != nil {
		l.Notes = *p.Notes
	}
	if p.Cancelled != nil {
		l.Cancelled = *p.Cancelled
	}
	if p.UnitCount != nil {
		l.UnitCount = *p.UnitCount
	}
}

// IsEmpty reports whether the patch changes nothing.
func (p LessonPatch) IsEmpty() bool {
	return p.Date == nil && p.Period == nil && p.Topic == nil && p.Content == nil &&
		p.Notes == nil && p.Cancelled == nil && p.UnitCount == nil
}

func (p LessonPatch) MarshalJSON() ([]byte, error) {
	m := make(map[string]any)
	if p.Date != nil {
		m["date"] = schedule.FormatDate(*p.Date)
	}
	if p.Period != nil {
		m["period"] = *p.Period
	}
	if p.Topic != nil {
		m["topic"] = *p.Topic
	}
	if p.Content != nil {
		m["content"] = *p.Content
	}
	if p.Notes != nil {
		m["notes"] = *p.Notes
	}
	if p.Cancelled != nil {
		m["is_cancelled"] = *p.Cancelled
	}
	if p.UnitCount != nil {
		m["unit_count"] = *p.UnitCount
	}
	return json.Marshal(m)
}

func (p *LessonPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	verr := &ValidationError{}
	var out LessonPatch
	for key, val := range raw {
		switch key {
		case "date":
			var s string
			if err := json.Unmarshal(val, &s); err != nil {
				verr.add(key, "must be a string")
				continue
			}
			d, err := schedule.ParseDate(s)
			if err != nil {
				verr.add(key, err.Error())
				continue
			}
			out.Date = &d
		case "period":
			var period OptionalPeriod
			if err := period.UnmarshalJSON(val); err != nil {
				verr.add(key, err.Error())
				continue
			}
			out.Period = &period
		case "topic":
			out.Topic = decodeString(val, key, verr)
		case "content":
			out.Content = decodeString(val, key, verr)
		case "notes":
			out.Notes = decodeString(val, key, verr)
		case "is_cancelled":
			var b bool
			if err := json.Unmarshal(val, &b); err != nil {
				verr.add(key, "must be a boolean")
				continue
			}
			out.Cancelled = &b
		case "unit_count":
			var n int
			if err := json.Unmarshal(val, &n); err != nil || n < 0 {
				verr.add(key, "must be a non-negative number")
				continue
			}
			out.UnitCount = &n
		}
	}
	if err := verr.orNil(); err != nil {
		return err
	}
	*p = out
	return nil
}

func decodeString(val json.RawMessage, key string, verr *ValidationError) *string {
	var s string
	if err := json.Unmarshal(val, &s); err != nil {
		verr.add(key, "must be a string")
		return nil
	}
	return &s
}
