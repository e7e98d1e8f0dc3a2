package api

import (
	"net/http"

	"lessonplanner/internal/prefs"
)

// UsePreferences enables the /preferences endpoints on store.
func (s *HTTPServer) UsePreferences(store prefs.Store) {
	s.prefs = store
}

// handlePreferences reads, replaces or resets a user's calendar preferences.
// Users without stored preferences get the defaults.
// GET|PUT|DELETE /preferences/{userId}
func (s *HTTPServer) handlePreferences(w http.ResponseWriter, r *http.Request) {
	if s.prefs == nil {
		writeError(w, http.StatusServiceUnavailable, "preferences are not configured")
		return
	}
	userID := r.PathValue("userId")

	switch r.Method {
	case http.MethodGet:
		p, err := prefs.Load(r.Context(), s.prefs, userID)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("preferences unavailable, serving defaults")
		}
		writeJSON(w, http.StatusOK, p)

	case http.MethodPut:
		p := prefs.Defaults()
		if err := decodeJSON(w, r, &p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := p.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.prefs.Set(r.Context(), userID, p); err != nil {
			s.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)

	case http.MethodDelete:
		if err := s.prefs.Delete(r.Context(), userID); err != nil {
			s.writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET, PUT or DELETE")
	}
}
