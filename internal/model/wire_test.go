package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalPeriodUnmarshal(t *testing.T) {
	tests := []struct {
		input   string
		want    OptionalPeriod
		wantErr bool
	}{
		{`3`, PeriodOf(3), false},
		{`"4"`, PeriodOf(4), false},
		{`null`, NoPeriod, false},
		{`""`, NoPeriod, false},
		{`0`, NoPeriod, true},
		{`11`, NoPeriod, true},
		{`"third"`, NoPeriod, true},
		{`true`, NoPeriod, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var p OptionalPeriod
			err := json.Unmarshal([]byte(tt.input), &p)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestWorkplanEntryDTO(t *testing.T) {
	var dto WorkplanEntryDTO
	require.NoError(t, json.Unmarshal([]byte(`{
		"date": "2026-03-04",
		"period": 2,
		"unterrichtseinheit": "Bruchrechnung",
		"lehrplan": "item 1 of 3: Bruchrechnung",
		"stundenthema": "Einführung"
	}`), &dto))

	entry, err := dto.Entry("class-1")
	require.NoError(t, err)
	assert.Equal(t, "class-1", entry.ClassID)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), entry.Date)
	assert.Equal(t, 2, entry.Period)
	assert.Equal(t, "Bruchrechnung", entry.Unit)
	assert.Equal(t, "item 1 of 3: Bruchrechnung", entry.CurriculumRef)
	assert.Equal(t, "Einführung", entry.Topic)

	back := WorkplanToDTO(entry)
	assert.Equal(t, dto, back)

	_, err = WorkplanEntryDTO{Date: "04.03.2026"}.Entry("class-1")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 2)
}

func TestLessonDTO(t *testing.T) {
	var dto LessonDTO
	require.NoError(t, json.Unmarshal([]byte(`{"class_id":"c1","date":"2026-03-02","period":null,"topic":"Photosynthese"}`), &dto))

	lesson, err := dto.Lesson()
	require.NoError(t, err)
	assert.False(t, lesson.HasPeriod())
	assert.Equal(t, 1, lesson.UnitCount)

	_, err = LessonDTO{Date: "2026-03-02", UnitCount: -1}.Lesson()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "class_id", verr.Fields[0].Field)
	assert.Equal(t, "unit_count", verr.Fields[1].Field)
}

func TestLessonPatch(t *testing.T) {
	t.Run("reschedule carries only the date", func(t *testing.T) {
		data, err := json.Marshal(ReschedulePatch(time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)))
		require.NoError(t, err)
		assert.JSONEq(t, `{"date":"2026-03-05"}`, string(data))
	})

	t.Run("null period clears", func(t *testing.T) {
		var p LessonPatch
		require.NoError(t, json.Unmarshal([]byte(`{"period":null,"topic":"Neu"}`), &p))
		require.NotNil(t, p.Period)
		assert.False(t, p.Period.Valid)

		l := LessonRecord{Period: PeriodOf(3), Topic: "Alt"}
		p.Apply(&l)
		assert.False(t, l.HasPeriod())
		assert.Equal(t, "Neu", l.Topic)
	})

	t.Run("absent period untouched", func(t *testing.T) {
		var p LessonPatch
		require.NoError(t, json.Unmarshal([]byte(`{"date":"2026-03-09"}`), &p))
		assert.Nil(t, p.Period)

		l := LessonRecord{Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Period: PeriodOf(3)}
		p.Apply(&l)
		assert.Equal(t, 3, l.Period.Value)
		assert.Equal(t, 9, l.Date.Day())
	})

	t.Run("invalid fields rejected", func(t *testing.T) {
		var p LessonPatch
		err := json.Unmarshal([]byte(`{"date":"soon","unit_count":-2}`), &p)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Len(t, verr.Fields, 2)
	})

	assert.True(t, LessonPatch{}.IsEmpty())
}

func TestErrors(t *testing.T) {
	err := error(&TransportError{Op: "update lesson", StatusCode: 502})
	assert.True(t, IsTransport(err))
	assert.EqualError(t, err, "update lesson: http 502")

	cause := errors.New("connection refused")
	wrapped := &TransportError{Op: "get workplan", Err: cause}
	assert.ErrorIs(t, wrapped, cause)

	cfg := &ConfigurationError{ClassID: "5a", Reason: "weekly schedule has no periods"}
	assert.Contains(t, cfg.Error(), "5a")
}
