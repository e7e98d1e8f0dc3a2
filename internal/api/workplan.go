package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"lessonplanner/internal/export"
	"lessonplanner/internal/model"
	"lessonplanner/internal/placement"
	"lessonplanner/internal/schedule"
)

// MaxRangeDays bounds list queries.
const MaxRangeDays = 400

// MaxBulkEntries bounds a single bulk request.
const MaxBulkEntries = 1000

// handleWorkplan returns the class's entries in range.
// GET /workplan/{classId}?start=&end=
func (s *HTTPServer) handleWorkplan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}
	from, to, err := parseRange(r.URL.Query().Get("start"), r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := s.store.GetWorkplan(r.Context(), r.PathValue("classId"), from, to)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	out := make([]model.WorkplanEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, model.WorkplanToDTO(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleWorkplanBulk creates or overwrites entries at their keys.
// POST /workplan/{classId}/bulk
func (s *HTTPServer) handleWorkplanBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	if !s.bulk.allow(r) {
		writeError(w, http.StatusTooManyRequests, "too many bulk requests")
		return
	}

	classID := r.PathValue("classId")
	var req model.BulkWorkplanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Entries) == 0 {
		writeError(w, http.StatusBadRequest, "entries are required")
		return
	}
	if len(req.Entries) > MaxBulkEntries {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d entries per request", MaxBulkEntries))
		return
	}

	entries := make([]model.WorkplanEntry, 0, len(req.Entries))
	verr := &model.ValidationError{}
	for i, dto := range req.Entries {
		e, err := dto.Entry(classID)
		if err != nil {
			var fe *model.ValidationError
			if errors.As(err, &fe) {
				for _, f := range fe.Fields {
					verr.Fields = append(verr.Fields, model.FieldError{Field: fmt.Sprintf("entries[%d].%s", i, f.Field), Error: f.Error})
				}
				continue
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		entries = append(entries, e)
	}
	if len(verr.Fields) > 0 {
		s.writeStoreError(w, verr)
		return
	}

	created, err := s.store.BulkCreateWorkplan(r.Context(), classID, entries)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.BulkWorkplanResponse{Created: created})
}

type placeItem struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type placeRequest struct {
	Title     string      `json:"title"`
	StartDate string      `json:"start_date"`
	Items     []placeItem `json:"items"`
}

type placeResponse struct {
	Created int                      `json:"created"`
	Entries []model.WorkplanEntryDTO `json:"entries"`
}

// handleWorkplanPlace projects an ordered item list onto the class schedule
// and stores the result. Nothing is stored unless every item found a slot.
// POST /workplan/{classId}/place
func (s *HTTPServer) handleWorkplanPlace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}
	if !s.bulk.allow(r) {
		writeError(w, http.StatusTooManyRequests, "too many bulk requests")
		return
	}

	var req placeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	start, err := schedule.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date format; expected YYYY-MM-DD")
		return
	}
	if len(req.Items) == 0 || len(req.Items) > MaxBulkEntries {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("between 1 and %d items are required", MaxBulkEntries))
		return
	}

	class, err := s.store.GetClass(r.Context(), r.PathValue("classId"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	items := make([]placement.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = placement.Item{Title: it.Title, Content: it.Content}
	}
	res, err := s.placement.Place(r.Context(), placement.Request{Class: *class, Title: req.Title, StartDate: start, Items: items})
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	out := placeResponse{Created: res.Created, Entries: make([]model.WorkplanEntryDTO, len(res.Entries))}
	for i, e := range res.Entries {
		out.Entries[i] = model.WorkplanToDTO(e)
	}
	writeJSON(w, http.StatusCreated, out)
}

// handleWorkplanExport streams the reconciled month as xlsx.
// GET /workplan/{classId}/export?month=YYYY-MM [&hide_weekends=] [&user_id=]
func (s *HTTPServer) handleWorkplanExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}
	year, month, err := s.parseMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	classID := r.PathValue("classId")
	class, err := s.store.GetClass(r.Context(), classID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	grid, err := s.calendar.LoadMonth(r.Context(), classID, year, month, gridOptions(r, s.userPreferences(r)))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkplan(&buf, grid); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(class.Name, grid)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func parseRange(start, end string) (from, to time.Time, err error) {
	if start == "" || end == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("start and end are required")
	}
	if from, err = schedule.ParseDate(start); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start format; expected YYYY-MM-DD")
	}
	if to, err = schedule.ParseDate(end); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end format; expected YYYY-MM-DD")
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("start must be before or equal to end")
	}
	if to.Sub(from) > MaxRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("date range exceeds maximum of %d days", MaxRangeDays)
	}
	return from, to, nil
}

// parseMonth parses YYYY-MM; empty means the current month.
func (s *HTTPServer) parseMonth(v string) (int, time.Month, error) {
	if v == "" {
		now := s.now()
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", v)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month format; expected YYYY-MM")
	}
	return t.Year(), t.Month(), nil
}
