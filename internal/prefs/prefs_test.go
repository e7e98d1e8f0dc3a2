package prefs

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lessonplanner/internal/calendar"
	"lessonplanner/internal/drag"
)

func TestDefaultsAndValidate(t *testing.T) {
	d := Defaults()
	require.NoError(t, d.Validate())
	assert.False(t, d.GridOptions().HideWeekends)

	tests := []struct {
		name string
		p    Preferences
		ok   bool
	}{
		{"week view", Preferences{View: calendar.ViewWeek, PeriodPolicy: drag.PolicyClear}, true},
		{"empty policy means keep", Preferences{View: calendar.ViewMonth}, true},
		{"bad view", Preferences{View: "year"}, false},
		{"bad policy", Preferences{View: calendar.ViewMonth, PeriodPolicy: "shift"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func storeContract(t *testing.T, s Store) {
	ctx := context.Background()

	p, err := Load(ctx, s, "u1")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), p)

	want := Preferences{View: calendar.ViewWeek, ShowWeekends: false, PeriodPolicy: drag.PolicyNearest, LastClassID: "c1"}
	require.NoError(t, s.Set(ctx, "u1", want))

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	require.NoError(t, s.Delete(ctx, "u1"))
	_, err = s.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	storeContract(t, NewRedisStore(rdb, time.Hour))

	require.NoError(t, NewRedisStore(rdb, time.Hour).Set(context.Background(), "u2", Defaults()))
	assert.Equal(t, time.Hour, mr.TTL("planner:prefs:u2"))
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, NewMemoryStore(cache.NoExpiration, time.Minute))
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, userID string) (*Preferences, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Preferences), args.Error(1)
}

func (m *mockStore) Set(ctx context.Context, userID string, p Preferences) error {
	return m.Called(ctx, userID, p).Error(0)
}

func (m *mockStore) Delete(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func TestFailoverStore(t *testing.T) {
	primary := new(mockStore)
	fallback := NewMemoryStore(cache.NoExpiration, time.Minute)
	logger := zerolog.New(io.Discard)
	s := NewFailoverStore(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		p := Defaults()
		primary.On("Get", ctx, "u1").Return(&p, nil).Once()
		got, err := s.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, p, *got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		week := Preferences{View: calendar.ViewWeek, PeriodPolicy: drag.PolicyKeep}
		primary.On("Set", ctx, "u2", week).Return(errors.New("connection refused")).Once()
		require.NoError(t, s.Set(ctx, "u2", week))
		assert.True(t, s.isDown.Load())

		got, err := s.Get(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, calendar.ViewWeek, got.View)
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		s.isDown.Store(true)
		s.lastCheck = time.Now().Add(-2 * time.Minute)

		primary.On("Get", ctx, "u2").Return(nil, ErrNotFound).Once()
		got, err := s.Get(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, calendar.ViewWeek, got.View, "outage writes are still served from fallback")
		assert.False(t, s.isDown.Load())
		primary.AssertExpectations(t)
	})
}
