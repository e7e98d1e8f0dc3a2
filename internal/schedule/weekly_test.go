package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		days    map[time.Weekday][]int
		want    map[time.Weekday][]int
		wantErr bool
	}{
		{
			name: "sorted and deduplicated",
			days: map[time.Weekday][]int{time.Monday: {3, 1, 3, 2}},
			want: map[time.Weekday][]int{time.Monday: {1, 2, 3}},
		},
		{
			name: "empty day omitted",
			days: map[time.Weekday][]int{time.Monday: {}, time.Friday: {5}},
			want: map[time.Weekday][]int{time.Friday: {5}},
		},
		{
			name:    "period zero",
			days:    map[time.Weekday][]int{time.Monday: {0}},
			wantErr: true,
		},
		{
			name:    "period eleven",
			days:    map[time.Weekday][]int{time.Tuesday: {11}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := New(tt.days)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for day := time.Sunday; day <= time.Saturday; day++ {
				assert.Equal(t, tt.want[day], w.PeriodsFor(day), day.String())
			}
		})
	}
}

func TestPeriodsForReturnsCopy(t *testing.T) {
	w := MustNew(map[time.Weekday][]int{time.Monday: {1, 2}})
	p := w.PeriodsFor(time.Monday)
	p[0] = 9
	assert.Equal(t, []int{1, 2}, w.PeriodsFor(time.Monday))
}

func TestToggle(t *testing.T) {
	w := MustNew(map[time.Weekday][]int{time.Monday: {2}})

	added, err := w.Toggle(time.Monday, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, added.PeriodsFor(time.Monday))
	assert.Equal(t, []int{2}, w.PeriodsFor(time.Monday), "receiver must not change")

	removed, err := w.Toggle(time.Monday, 2)
	require.NoError(t, err)
	assert.False(t, removed.HasCapacity())
	assert.Empty(t, removed.Days())

	_, err = w.Toggle(time.Monday, 42)
	assert.Error(t, err)
}

func TestNearest(t *testing.T) {
	w := MustNew(map[time.Weekday][]int{time.Tuesday: {2, 6}})

	tests := []struct {
		period int
		want   int
	}{
		{1, 2},
		{4, 2},
		{5, 6},
		{9, 6},
	}
	for _, tt := range tests {
		got, ok := w.Nearest(time.Tuesday, tt.period)
		assert.True(t, ok)
		assert.Equal(t, tt.want, got, "period %d", tt.period)
	}

	_, ok := w.Nearest(time.Monday, 3)
	assert.False(t, ok)
}

func TestWeeklyJSON(t *testing.T) {
	var w Weekly
	require.NoError(t, json.Unmarshal([]byte(`{"monday":[2,1],"Wednesday":[3],"friday":[]}`), &w))

	assert.Equal(t, []int{1, 2}, w.PeriodsFor(time.Monday))
	assert.Equal(t, []int{3}, w.PeriodsFor(time.Wednesday))
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday}, w.Days())
	assert.Equal(t, 3, w.WeeklyCapacity())

	data, err := json.Marshal(w)
	require.NoError(t, err)
	assert.JSONEq(t, `{"monday":[1,2],"wednesday":[3]}`, string(data))

	assert.Error(t, json.Unmarshal([]byte(`{"someday":[1]}`), &w))
	assert.Error(t, json.Unmarshal([]byte(`{"monday":[12]}`), &w))
}

func TestDateHelpers(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	d := DateOf(time.Date(2026, 3, 2, 23, 30, 0, 0, loc))
	assert.Equal(t, "2026-03-02", FormatDate(d))
	assert.Equal(t, time.UTC, d.Location())

	parsed, err := ParseDate("2026-03-02")
	require.NoError(t, err)
	assert.True(t, SameDay(parsed, d))
	assert.Equal(t, 1, ISOWeekday(parsed))
	assert.Equal(t, 7, ISOWeekday(parsed.AddDate(0, 0, 6)))

	_, err = ParseDate("02.03.2026")
	assert.Error(t, err)
}
