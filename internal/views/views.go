// Package views computes derived read models over a ledger snapshot:
// visible student lists, financial summaries, session scheduling and
// absence counts.
//
// Every function here is pure and deterministic: the reference month and
// "today" are always explicit parameters, never read from the clock.
package views

import (
	"strings"
	"time"

	"bakano/internal/core"
)

// FinancialSummary aggregates one group's fees for a reference month.
// Students who joined after the month contribute to none of the sums.
type FinancialSummary struct {
	TotalPaid        core.Money
	TotalUnpaid      core.Money
	PotentialRevenue core.Money
}

// eligible reports whether the student owes anything for the month: the
// join month must not be after the reference month. Month keys compare
// chronologically as strings.
func eligible(s *core.Student, monthKey string) bool {
	return s.JoinMonthKey() <= monthKey
}

// VisibleStudents filters a group's students for display. searchText is a
// case-insensitive substring match on the name; unpaidOnly keeps students
// whose month resolves to unpaid (unmarked counts as unpaid). The group's
// native ordering is preserved.
func VisibleStudents(g *core.Group, monthKey, searchText string, unpaidOnly bool) []*core.Student {
	search := strings.ToLower(strings.TrimSpace(searchText))
	out := make([]*core.Student, 0, len(g.Students))
	for _, s := range g.Students {
		if search != "" && !strings.Contains(strings.ToLower(s.Name), search) {
			continue
		}
		if unpaidOnly && s.PaymentFor(monthKey) != core.Unpaid {
			continue
		}
		out = append(out, s)
	}
	return out
}

// GroupSummary computes the per-group financial summary for a month.
func GroupSummary(g *core.Group, monthKey string) FinancialSummary {
	var sum FinancialSummary
	for _, s := range g.Students {
		if !eligible(s, monthKey) {
			continue
		}
		sum.PotentialRevenue = sum.PotentialRevenue.Add(s.MonthlyFee)
		if s.PaymentFor(monthKey) == core.Paid {
			sum.TotalPaid = sum.TotalPaid.Add(s.MonthlyFee)
		} else {
			sum.TotalUnpaid = sum.TotalUnpaid.Add(s.MonthlyFee)
		}
	}
	return sum
}

// OrganizationPaidTotal sums the paid fees of every eligible student in
// every group for the month.
func OrganizationPaidTotal(groups []*core.Group, monthKey string) core.Money {
	var total core.Money
	for _, g := range groups {
		for _, s := range g.Students {
			if eligible(s, monthKey) && s.PaymentFor(monthKey) == core.Paid {
				total = total.Add(s.MonthlyFee)
			}
		}
	}
	return total
}

// TotalStudents counts students across all groups.
func TotalStudents(groups []*core.Group) int {
	n := 0
	for _, g := range groups {
		n += len(g.Students)
	}
	return n
}

// NextSessionDate returns the first date from today (inclusive) whose
// weekday is one of the group's session days. The scan never looks past
// today+6. An empty session-day set degenerates to today.
func NextSessionDate(sessionDays []time.Weekday, today time.Time) time.Time {
	day := core.DateOf(today).Time
	if len(sessionDays) == 0 {
		return day
	}
	for i := 0; i < 7; i++ {
		candidate := day.AddDate(0, 0, i)
		for _, w := range sessionDays {
			if candidate.Weekday() == w {
				return candidate
			}
		}
	}
	return day
}

// AbsencesInMonth counts a student's absent marks within the reference
// month. Entries dated before the join date are ignored even if present
// in the map.
func AbsencesInMonth(s *core.Student, monthKey string) int {
	joinKey := s.JoinDate.Key()
	n := 0
	for dayKey, status := range s.Attendance {
		if status != core.Absent {
			continue
		}
		if !strings.HasPrefix(dayKey, monthKey+"-") {
			continue
		}
		if dayKey < joinKey {
			continue
		}
		n++
	}
	return n
}

// AbsenceFlag reports whether the month's absence count exceeds the
// configured warning limit.
func AbsenceFlag(s *core.Student, monthKey string, warnLimit int) bool {
	return AbsencesInMonth(s, monthKey) > warnLimit
}

// SessionDatesInMonth enumerates every calendar date of the month whose
// weekday is a session day, in chronological order. Shared by the roster
// view and the report renderer so both agree on the schedule.
func SessionDatesInMonth(sessionDays []time.Weekday, monthKey string) ([]time.Time, error) {
	first, err := core.ParseMonthKey(monthKey)
	if err != nil {
		return nil, err
	}
	var out []time.Time
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		for _, w := range sessionDays {
			if d.Weekday() == w {
				out = append(out, d)
				break
			}
		}
	}
	return out, nil
}
