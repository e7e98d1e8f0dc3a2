// Package api serves the planner persistence API over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"lessonplanner/internal/calendar"
	"lessonplanner/internal/database"
	"lessonplanner/internal/events"
	"lessonplanner/internal/metrics"
	"lessonplanner/internal/model"
	"lessonplanner/internal/placement"
	"lessonplanner/internal/prefs"
	"lessonplanner/internal/slots"
)

// Store is the persistence the server runs on.
type Store interface {
	calendar.Source
	ListClasses(ctx context.Context) ([]model.Class, error)
	CreateClass(ctx context.Context, class *model.Class) error
	UpdateClass(ctx context.Context, class *model.Class) error
	CreateLesson(ctx context.Context, l model.LessonRecord) (*model.LessonRecord, error)
	GetLesson(ctx context.Context, id string) (*model.LessonRecord, error)
	UpdateLesson(ctx context.Context, id string, patch model.LessonPatch) (*model.LessonRecord, error)
	DeleteLesson(ctx context.Context, id string) error
	BulkCreateWorkplan(ctx context.Context, classID string, entries []model.WorkplanEntry) (int, error)
}

// Config tunes the server.
type Config struct {
	APIKey        string
	CORSOrigins   []string
	// BulkRate and BulkBurst limit bulk and place requests per client
	// address.
	BulkRate      float64
	BulkBurst     int
	HorizonDays   int
	PreviewLength int
}

// HTTPServer exposes classes, lessons, workplan, calendar and preference
// endpoints.
type HTTPServer struct {
	store     Store
	calendar  *calendar.Service
	placement *placement.Workflow
	prefs     prefs.Store
	bulk      *clientLimiters
	cfg       Config
	logger    *zerolog.Logger
	now       func() time.Time
}

// NewHTTPServer wires the handlers. holidays and bus may be nil.
func NewHTTPServer(store Store, holidays calendar.HolidayProvider, cfg Config, bus events.Publisher, logger *zerolog.Logger) *HTTPServer {
	if cfg.BulkRate <= 0 {
		cfg.BulkRate = 2
	}
	if cfg.BulkBurst <= 0 {
		cfg.BulkBurst = 5
	}
	return &HTTPServer{
		store:    store,
		calendar: calendar.NewService(store, calendar.NewBuilder(holidays)),
		placement: placement.NewWorkflow(slots.NewProjector(cfg.HorizonDays), store, placement.Options{
			PreviewLength: cfg.PreviewLength,
			Bus:           bus,
			Logger:        logger,
		}),
		bulk:   newClientLimiters(rate.Limit(cfg.BulkRate), cfg.BulkBurst, 10*time.Minute),
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Handler returns the routed handler with auth, metrics and CORS applied.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.route(mux, "/classes", s.handleClasses)
	s.route(mux, "/classes/{id}", s.handleClass)
	s.route(mux, "/lessons", s.handleLessons)
	s.route(mux, "/lessons/{id}", s.handleLesson)
	s.route(mux, "/workplan/{classId}", s.handleWorkplan)
	s.route(mux, "/workplan/{classId}/bulk", s.handleWorkplanBulk)
	s.route(mux, "/workplan/{classId}/place", s.handleWorkplanPlace)
	s.route(mux, "/workplan/{classId}/export", s.handleWorkplanExport)
	s.route(mux, "/calendar/{classId}", s.handleCalendar)
	s.route(mux, "/preferences/{userId}", s.handlePreferences)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "x-api-key"},
	})
	return c.Handler(mux)
}

func (s *HTTPServer) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.instrument(pattern, s.authorize(h)))
}

func (s *HTTPServer) authorize(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey != "" && r.Header.Get("x-api-key") != s.cfg.APIKey {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *HTTPServer) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.ObserveHTTP(route, strconv.Itoa(rec.status), time.Since(start).Seconds())
		if rec.status >= http.StatusInternalServerError {
			s.logger.Error().Str("method", r.Method).Str("path", r.URL.Path).Int("status", rec.status).Msg("request failed")
		}
	})
}

// writeStoreError maps store and domain errors onto status codes.
func (s *HTTPServer) writeStoreError(w http.ResponseWriter, err error) {
	var (
		verr   *model.ValidationError
		cfgErr *model.ConfigurationError
		capErr *slots.InsufficientCapacityError
	)
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, database.ErrUnknownClass):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": verr.Error(), "fields": verr.Fields})
	case errors.As(err, &cfgErr):
		writeError(w, http.StatusUnprocessableEntity, cfgErr.Error())
	case errors.As(err, &capErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":     capErr.Error(),
			"requested": capErr.Requested,
			"found":     capErr.Found,
		})
	default:
		s.logger.Error().Err(err).Msg("store error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
