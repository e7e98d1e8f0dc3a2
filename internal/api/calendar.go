package api

import (
	"net/http"
	"strconv"

	"lessonplanner/internal/calendar"
	"lessonplanner/internal/model"
	"lessonplanner/internal/prefs"
	"lessonplanner/internal/reconcile"
	"lessonplanner/internal/schedule"
)

type slotDTO struct {
	ID        string                  `json:"id"`
	Period    int                     `json:"period"`
	Kind      string                  `json:"kind"`
	Draggable bool                    `json:"draggable"`
	Lesson    *model.LessonDTO        `json:"lesson,omitempty"`
	Shadowed  []model.LessonDTO       `json:"shadowed,omitempty"`
	Workplan  *model.WorkplanEntryDTO `json:"workplan,omitempty"`
}

type dayDTO struct {
	Date         string            `json:"date"`
	Weekday      string            `json:"weekday"`
	Weekend      bool              `json:"weekend"`
	OtherMonth   bool              `json:"other_month"`
	Today        bool              `json:"today"`
	Holiday      string            `json:"holiday,omitempty"`
	Slots        []slotDTO         `json:"slots"`
	Unperiodized []model.LessonDTO `json:"unperiodized"`
	OffSchedule  []model.LessonDTO `json:"off_schedule"`
}

type gridDTO struct {
	ClassID string     `json:"class_id"`
	View    string     `json:"view"`
	Year    int        `json:"year"`
	Month   int        `json:"month"`
	From    string     `json:"from"`
	To      string     `json:"to"`
	Weeks   [][]dayDTO `json:"weeks"`
}

// handleCalendar renders the reconciled month or week grid. With user_id the
// user's stored preferences pick the view and weekend visibility; explicit
// query parameters win.
// GET /calendar/{classId}?month=YYYY-MM | ?week=YYYY-MM-DD [&hide_weekends=true] [&user_id=]
func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use GET")
		return
	}
	q := r.URL.Query()
	classID := r.PathValue("classId")
	p := s.userPreferences(r)
	opts := gridOptions(r, p)

	week, month := q.Get("week"), q.Get("month")
	if week == "" && month == "" && p.View == calendar.ViewWeek {
		week = schedule.FormatDate(s.now())
	}

	var (
		grid *calendar.Grid
		err  error
	)
	if week != "" {
		day, perr := schedule.ParseDate(week)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid week format; expected YYYY-MM-DD")
			return
		}
		grid, err = s.calendar.LoadWeek(r.Context(), classID, day, opts)
	} else {
		year, m, perr := s.parseMonth(month)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr.Error())
			return
		}
		grid, err = s.calendar.LoadMonth(r.Context(), classID, year, m, opts)
	}
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, gridToDTO(grid))
}

// userPreferences returns the preferences of the user_id query parameter, or
// the defaults without one.
func (s *HTTPServer) userPreferences(r *http.Request) prefs.Preferences {
	userID := r.URL.Query().Get("user_id")
	if userID == "" || s.prefs == nil {
		return prefs.Defaults()
	}
	p, err := prefs.Load(r.Context(), s.prefs, userID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("preferences unavailable, using defaults")
	}
	return p
}

// gridOptions derives grid options from p; hide_weekends overrides them.
func gridOptions(r *http.Request, p prefs.Preferences) calendar.Options {
	opts := p.GridOptions()
	if v := r.URL.Query().Get("hide_weekends"); v != "" {
		if hide, err := strconv.ParseBool(v); err == nil {
			opts.HideWeekends = hide
		}
	}
	return opts
}

func gridToDTO(g *calendar.Grid) gridDTO {
	from, to := g.Range()
	out := gridDTO{
		ClassID: g.ClassID,
		View:    string(g.View),
		Year:    g.Year,
		Month:   int(g.Month),
		From:    schedule.FormatDate(from),
		To:      schedule.FormatDate(to),
		Weeks:   make([][]dayDTO, len(g.Weeks)),
	}
	for i, week := range g.Weeks {
		days := make([]dayDTO, len(week))
		for j, c := range week {
			days[j] = cellToDTO(c)
		}
		out.Weeks[i] = days
	}
	return out
}

func cellToDTO(c calendar.Cell) dayDTO {
	d := dayDTO{
		Date:         schedule.FormatDate(c.Date),
		Weekday:      schedule.WeekdayName(c.Date.Weekday()),
		Weekend:      c.Weekend,
		OtherMonth:   c.OtherMonth,
		Today:        c.Today,
		Holiday:      c.Holiday,
		Slots:        make([]slotDTO, 0, len(c.Day.Slots)),
		Unperiodized: lessonDTOs(c.Day.Unperiodized),
		OffSchedule:  lessonDTOs(c.Day.OffSchedule),
	}
	for _, cs := range c.Day.Slots {
		sd := slotDTO{ID: cs.ID(), Period: cs.Slot.Period, Draggable: cs.Draggable()}
		switch occ := cs.Occupant.(type) {
		case *reconcile.LessonOccupant:
			sd.Kind = "lesson"
			dto := model.LessonToDTO(occ.Lesson)
			sd.Lesson = &dto
			if len(occ.Shadowed) > 0 {
				sd.Shadowed = lessonDTOs(occ.Shadowed)
			}
		case *reconcile.WorkplanOccupant:
			sd.Kind = "workplan"
			dto := model.WorkplanToDTO(occ.Entry)
			sd.Workplan = &dto
		default:
			sd.Kind = "empty"
		}
		d.Slots = append(d.Slots, sd)
	}
	return d
}

func lessonDTOs(ls []model.LessonRecord) []model.LessonDTO {
	out := make([]model.LessonDTO, len(ls))
	for i, l := range ls {
		out[i] = model.LessonToDTO(l)
	}
	return out
}
