// Package report builds the printable monthly report: a per-group table
// of attendance marks and payment status, rendered to PDF, plus the
// data packet for the narrative absence report.
package report

import (
	"fmt"
	"sort"
	"time"

	"bakano/internal/ai"
	"bakano/internal/core"
	"bakano/internal/views"
)

type (
	// MonthlyTable is one group's report for one month. Columns are the
	// group's session dates in that month; rows are students.
	MonthlyTable struct {
		GroupName    string
		Month        time.Time
		SessionDates []time.Time
		Rows         []Row
		Summary      views.FinancialSummary
	}

	Row struct {
		Name     string
		Payment  core.PaymentStatus
		Absences int
		Flagged  bool
		// Marks has one entry per session date: "P", "A" or blank.
		Marks []string
	}
)

// BuildMonthlyTable assembles the table for a group and month. Only
// students whose join month is at or before the report month appear.
// Session dates before a student's join date get a blank mark.
func BuildMonthlyTable(g *core.Group, monthKey string, warnLimit int) (MonthlyTable, error) {
	month, err := core.ParseMonthKey(monthKey)
	if err != nil {
		return MonthlyTable{}, err
	}
	dates, err := views.SessionDatesInMonth(g.SessionDays, monthKey)
	if err != nil {
		return MonthlyTable{}, err
	}

	table := MonthlyTable{
		GroupName:    g.Name,
		Month:        month,
		SessionDates: dates,
		Summary:      views.GroupSummary(g, monthKey),
	}
	for _, st := range g.Students {
		if st.JoinMonthKey() > monthKey {
			continue
		}
		row := Row{
			Name:     st.Name,
			Payment:  st.PaymentFor(monthKey),
			Absences: views.AbsencesInMonth(st, monthKey),
			Flagged:  views.AbsenceFlag(st, monthKey, warnLimit),
			Marks:    make([]string, len(dates)),
		}
		joinKey := st.JoinDate.Key()
		for i, d := range dates {
			dayKey := core.DateOf(d).Key()
			if dayKey < joinKey {
				continue
			}
			switch st.Attendance[dayKey] {
			case core.Present:
				row.Marks[i] = "P"
			case core.Absent:
				row.Marks[i] = "A"
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// BuildAbsenceRequest collects per-student absent dates across all
// groups for the inclusive date range, as input for the narrative
// absence report. Students with no absences in the range are excluded.
func BuildAbsenceRequest(groups []*core.Group, start, end core.Date) (ai.AbsenceReportRequest, error) {
	startKey, endKey := start.Key(), end.Key()
	if startKey > endKey {
		return ai.AbsenceReportRequest{}, fmt.Errorf("range %s..%s: %w", startKey, endKey, core.ErrInvalidDate)
	}

	req := ai.AbsenceReportRequest{StartDate: startKey, EndDate: endKey}
	for _, g := range groups {
		for _, st := range g.Students {
			var dates []string
			for dayKey, status := range st.Attendance {
				if status == core.Absent && dayKey >= startKey && dayKey <= endKey {
					dates = append(dates, dayKey)
				}
			}
			if len(dates) == 0 {
				continue
			}
			sort.Strings(dates)
			req.Absences = append(req.Absences, ai.StudentAbsences{
				StudentName: st.Name,
				AbsentDates: dates,
			})
		}
	}
	return req, nil
}
