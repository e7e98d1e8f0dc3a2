package export

import (
	"fmt"
	"io"
	"strings"

	"lessonplanner/internal/calendar"
	"lessonplanner/internal/model"
	"lessonplanner/internal/reconcile"
	"lessonplanner/internal/schedule"
)

// Kinds of exported rows.
const (
	KindLesson       = "lesson"
	KindWorkplan     = "workplan"
	KindEmpty        = "empty"
	KindUnperiodized = "unperiodized"
	KindOffSchedule  = "off-schedule"
)

var columns = []string{"Date", "Weekday", "Period", "Kind", "Unit", "Curriculum", "Topic", "Cancelled", "Holiday"}

// Filename suggests a download name for the grid.
func Filename(className string, g *calendar.Grid) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ' ' {
			return '_'
		}
		return r
	}, className)
	if name == "" {
		name = g.ClassID
	}
	return fmt.Sprintf("workplan_%s_%04d-%02d.xlsx", name, g.Year, int(g.Month))
}

// WriteWorkplan writes the month of g as a workbook with one row per slot and
// per unscheduled lesson, followed by a summary sheet. Days outside the
// focused month are skipped.
func WriteWorkplan(out io.Writer, g *calendar.Grid) error {
	w := newSheetWriter()
	if err := w.addSheet(fmt.Sprintf("Workplan %04d-%02d", g.Year, int(g.Month))); err != nil {
		return err
	}
	if err := w.writeHeader(columns); err != nil {
		return err
	}

	counts := map[string]int{}
	holidayDays := 0
	for _, week := range g.Weeks {
		for _, cell := range week {
			if cell.OtherMonth {
				continue
			}
			lessons, workplan, empty := cell.Day.Counts()
			counts[KindLesson] += lessons
			counts[KindWorkplan] += workplan
			counts[KindEmpty] += empty
			counts[KindUnperiodized] += len(cell.Day.Unperiodized)
			counts[KindOffSchedule] += len(cell.Day.OffSchedule)
			if cell.IsHoliday() {
				holidayDays++
			}
			for _, row := range rows(cell) {
				if err := w.writeRow(row); err != nil {
					return err
				}
			}
		}
	}

	if err := w.addSheet("Summary"); err != nil {
		return err
	}
	if err := w.writeHeader([]string{"Kind", "Count"}); err != nil {
		return err
	}
	for _, kind := range []string{KindLesson, KindWorkplan, KindEmpty, KindUnperiodized, KindOffSchedule} {
		if err := w.writeRow([]any{kind, counts[kind]}); err != nil {
			return err
		}
	}
	if err := w.writeRow([]any{"holiday days", holidayDays}); err != nil {
		return err
	}

	return w.save(out)
}

func rows(cell calendar.Cell) [][]any {
	date := schedule.FormatDate(cell.Date)
	weekday := schedule.WeekdayName(cell.Date.Weekday())

	var out [][]any
	for _, s := range cell.Day.Slots {
		row := []any{date, weekday, s.Slot.Period, KindEmpty, "", "", "", "", cell.Holiday}
		switch occ := s.Occupant.(type) {
		case *reconcile.LessonOccupant:
			row[3], row[6], row[7] = KindLesson, occ.Lesson.Topic, cancelledMark(occ.Lesson)
		case *reconcile.WorkplanOccupant:
			row[3], row[4], row[5], row[6] = KindWorkplan, occ.Entry.Unit, occ.Entry.CurriculumRef, occ.Entry.Topic
		}
		out = append(out, row)
	}
	out = appendLessons(out, date, weekday, KindUnperiodized, cell.Day.Unperiodized, cell.Holiday)
	return appendLessons(out, date, weekday, KindOffSchedule, cell.Day.OffSchedule, cell.Holiday)
}

func appendLessons(out [][]any, date, weekday, kind string, lessons []model.LessonRecord, holiday string) [][]any {
	for _, l := range lessons {
		var period any = ""
		if l.Period.Valid {
			period = l.Period.Value
		}
		out = append(out, []any{date, weekday, period, kind, "", "", l.Topic, cancelledMark(l), holiday})
	}
	return out
}

func cancelledMark(l model.LessonRecord) string {
	if l.Cancelled {
		return "x"
	}
	return ""
}
