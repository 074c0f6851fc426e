package http

import (
	"log/slog"
	"net/http"
	"time"

	"bakano/internal/core"
	applog "bakano/internal/log"
	"bakano/internal/views"
)

// View models handed to the templates.
type (
	pageData struct {
		Month         string
		MonthLabel    string
		Search        string
		UnpaidOnly    bool
		Groups        []groupView
		OrgPaid       string
		TotalStudents int
		Weekdays      []weekdayOption
		HasExtractor  bool
	}

	groupView struct {
		ID          string
		Name        string
		DaysLabel   string
		NextSession string
		TotalPaid   string
		TotalUnpaid string
		Potential   string
		Students    []studentView
	}

	studentView struct {
		ID         string
		Name       string
		Fee        string
		DayKey     string
		Attendance core.AttendanceStatus
		Payment    core.PaymentStatus
		Absences   int
		Flagged    bool
	}

	weekdayOption struct {
		Value int
		Label string
	}
)

func weekdayOptions() []weekdayOption {
	opts := make([]weekdayOption, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		opts[d] = weekdayOption{Value: int(d), Label: d.String()}
	}
	return opts
}

func daysLabel(days []time.Weekday) string {
	out := ""
	for i, d := range days {
		if i > 0 {
			out += ", "
		}
		out += d.String()
	}
	return out
}

// buildPageData assembles the whole-roster view for a month: per-group
// summaries, filtered student rows, and the organization totals.
func (s *Server) buildPageData(month, search string, unpaidOnly bool) pageData {
	groups := s.ledger.Groups()
	today := time.Now()

	data := pageData{
		Month:         month,
		Search:        search,
		UnpaidOnly:    unpaidOnly,
		OrgPaid:       views.OrganizationPaidTotal(groups, month).Format(),
		TotalStudents: views.TotalStudents(groups),
		Weekdays:      weekdayOptions(),
		HasExtractor:  s.nameExtractor != nil,
	}
	if m, err := core.ParseMonthKey(month); err == nil {
		data.MonthLabel = m.Format("January 2006")
	}

	for _, g := range groups {
		next := views.NextSessionDate(g.SessionDays, today)
		dayKey := core.DateOf(next).Key()
		gv := groupView{
			ID:          g.ID,
			Name:        g.Name,
			DaysLabel:   daysLabel(g.SessionDays),
			NextSession: next.Format("Mon 02 Jan"),
		}
		sum := views.GroupSummary(g, month)
		gv.TotalPaid = sum.TotalPaid.Format()
		gv.TotalUnpaid = sum.TotalUnpaid.Format()
		gv.Potential = sum.PotentialRevenue.Format()

		for _, st := range views.VisibleStudents(g, month, search, unpaidOnly) {
			gv.Students = append(gv.Students, studentView{
				ID:         st.ID,
				Name:       st.Name,
				Fee:        st.MonthlyFee.Format(),
				DayKey:     dayKey,
				Attendance: st.Attendance[dayKey],
				Payment:    st.PaymentFor(month),
				Absences:   views.AbsencesInMonth(st, month),
				Flagged:    views.AbsenceFlag(st, month, s.warnLimit),
			})
		}
		data.Groups = append(data.Groups, gv)
	}
	return data
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldComponent, applog.ComponentHTTP)
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	data := s.buildPageData(monthOrNow(q.Get("month")), sanitizeInput(q.Get("search")), q.Get("unpaid") == "1")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template render failed",
			applog.FieldError, err, applog.FieldComponent, applog.ComponentHTTP)
	}
}

// handleRoster renders only the group list, for htmx swaps after
// filter changes and mutations.
func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	data := s.buildPageData(monthOrNow(q.Get("month")), sanitizeInput(q.Get("search")), q.Get("unpaid") == "1")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "roster.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template render failed",
			applog.FieldError, err, applog.FieldComponent, applog.ComponentHTTP)
	}
}

// renderRoster re-renders the roster after a mutation, preserving the
// filters the form posted back.
func (s *Server) renderRoster(w http.ResponseWriter, r *http.Request) {
	data := s.buildPageData(monthOrNow(r.Form.Get("month")), sanitizeInput(r.Form.Get("search")), r.Form.Get("unpaid") == "1")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "roster.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template render failed",
			applog.FieldError, err, applog.FieldComponent, applog.ComponentHTTP)
	}
}
