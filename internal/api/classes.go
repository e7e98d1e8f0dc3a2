package api

import (
	"net/http"
	"strings"

	"lessonplanner/internal/model"
)

// handleClasses lists or creates classes.
// GET|POST /classes
func (s *HTTPServer) handleClasses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		classes, err := s.store.ListClasses(r.Context())
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		if classes == nil {
			classes = []model.Class{}
		}
		writeJSON(w, http.StatusOK, classes)

	case http.MethodPost:
		var class model.Class
		if err := decodeJSON(w, r, &class); err != nil {
			writeError(w, http.StatusBadRequest, "invalid class: "+err.Error())
			return
		}
		if strings.TrimSpace(class.Name) == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		if err := s.store.CreateClass(r.Context(), &class); err != nil {
			s.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, class)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET or POST")
	}
}

// handleClass reads or replaces one class, including its weekly schedule.
// GET|PUT /classes/{id}
func (s *HTTPServer) handleClass(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		class, err := s.store.GetClass(r.Context(), id)
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, class)

	case http.MethodPut:
		var class model.Class
		if err := decodeJSON(w, r, &class); err != nil {
			writeError(w, http.StatusBadRequest, "invalid class: "+err.Error())
			return
		}
		class.ID = id
		if err := s.store.UpdateClass(r.Context(), &class); err != nil {
			s.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, class)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET or PUT")
	}
}
