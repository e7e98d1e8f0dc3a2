package prefs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverStore uses primary while it is healthy and fallback otherwise.
// After a primary error it stays on fallback for recoveryInterval before
// trying primary again. Writes made while down only reach fallback.
type FailoverStore struct {
	primary  Store
	fallback Store
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger) *FailoverStore {
	return &FailoverStore{primary: primary, fallback: fallback, logger: logger}
}

func (s *FailoverStore) Get(ctx context.Context, userID string) (*Preferences, error) {
	if s.usePrimary() {
		p, err := s.primary.Get(ctx, userID)
		if err == nil || errors.Is(err, ErrNotFound) {
			s.markUp()
			if err != nil {
				// fallback may hold what was written during an outage
				if fp, ferr := s.fallback.Get(ctx, userID); ferr == nil {
					return fp, nil
				}
			}
			return p, err
		}
		s.markDown(err)
	}
	return s.fallback.Get(ctx, userID)
}

func (s *FailoverStore) Set(ctx context.Context, userID string, p Preferences) error {
	if s.usePrimary() {
		err := s.primary.Set(ctx, userID, p)
		if err == nil {
			s.markUp()
			return nil
		}
		s.markDown(err)
	}
	return s.fallback.Set(ctx, userID, p)
}

func (s *FailoverStore) Delete(ctx context.Context, userID string) error {
	_ = s.fallback.Delete(ctx, userID)
	if s.usePrimary() {
		err := s.primary.Delete(ctx, userID)
		if err == nil {
			s.markUp()
			return nil
		}
		s.markDown(err)
	}
	return nil
}

func (s *FailoverStore) usePrimary() bool {
	if !s.isDown.Load() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastCheck) >= recoveryInterval
}

func (s *FailoverStore) markDown(err error) {
	s.mu.Lock()
	s.lastCheck = time.Now()
	s.mu.Unlock()
	if !s.isDown.Swap(true) {
		s.logger.Warn().Err(err).Msg("preferences primary store is down, using fallback")
	}
}

func (s *FailoverStore) markUp() {
	if s.isDown.Swap(false) {
		s.logger.Info().Msg("preferences primary store recovered")
	}
}
