package api

import (
	"errors"
	"net/http"

	"lessonplanner/internal/model"
	"lessonplanner/internal/schedule"
)

// handleLessons lists or creates lessons.
// GET /lessons?class_id=&start=&end=, POST /lessons
func (s *HTTPServer) handleLessons(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		classID := q.Get("class_id")
		if classID == "" {
			writeError(w, http.StatusBadRequest, "class_id is required")
			return
		}
		from, to, err := parseRange(q.Get("start"), q.Get("end"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		lessons, err := s.store.ListLessons(r.Context(), classID, from, to)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		out := make([]model.LessonDTO, 0, len(lessons))
		for _, l := range lessons {
			out = append(out, model.LessonToDTO(l))
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var dto model.LessonDTO
		if err := decodeJSON(w, r, &dto); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		lesson, err := dto.Lesson()
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		created, err := s.store.CreateLesson(r.Context(), lesson)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, model.LessonToDTO(*created))

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET or POST")
	}
}

// handleLesson reads, updates or deletes one lesson. A PUT carrying only
// {date} is a drag reschedule.
// GET|PUT|DELETE /lessons/{id}
func (s *HTTPServer) handleLesson(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		lesson, err := s.store.GetLesson(r.Context(), id)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, model.LessonToDTO(*lesson))

	case http.MethodPut:
		var patch model.LessonPatch
		if err := decodeJSON(w, r, &patch); err != nil {
			var verr *model.ValidationError
			if errors.As(err, &verr) {
				s.writeStoreError(w, verr)
				return
			}
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if patch.IsEmpty() {
			writeError(w, http.StatusBadRequest, "nothing to update")
			return
		}
		updated, err := s.store.UpdateLesson(r.Context(), id, patch)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		if patch.Date != nil {
			s.logger.Debug().Str("lesson_id", id).Str("date", schedule.FormatDate(*patch.Date)).Msg("lesson rescheduled")
		}
		writeJSON(w, http.StatusOK, model.LessonToDTO(*updated))

	case http.MethodDelete:
		if err := s.store.DeleteLesson(r.Context(), id); err != nil {
			s.writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET, PUT or DELETE")
	}
}
