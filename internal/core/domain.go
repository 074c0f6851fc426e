package core

import (
	"errors"
	"sort"
	"strings"
	"time"
)

const (
	Present AttendanceStatus = "present"
	Absent  AttendanceStatus = "absent"

	Paid   PaymentStatus = "paid"
	Unpaid PaymentStatus = "unpaid"
)

type (
	// AttendanceStatus is a per-date mark. The absence of an entry in a
	// student's attendance map means "unmarked", which is neither value.
	AttendanceStatus string

	// PaymentStatus is a per-month mark. A missing entry resolves to
	// Unpaid for every aggregation.
	PaymentStatus string

	// Date is a day-granular calendar date (midnight UTC).
	Date struct {
		time.Time
	}

	Student struct {
		ID       string
		Name     string
		JoinDate Date
		// Attendance is keyed by Date.Key ("2006-01-02").
		Attendance map[string]AttendanceStatus
		// Payments is keyed by MonthKey ("2006-01").
		Payments   map[string]PaymentStatus
		MonthlyFee Money
	}

	Group struct {
		ID          string
		Name        string
		SessionDays []time.Weekday
		Students    []*Student
	}
)

var (
	ErrEmptyName         = errors.New("empty name")
	ErrNameTooLong       = errors.New("name too long (max 120 characters)")
	ErrInvalidFee        = errors.New("invalid fee")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidSessionDay = errors.New("session day out of range")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidMonth      = errors.New("invalid month")
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// NewDate creates a day-granular Date from year, month, day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Key returns the attendance-map key for this date.
func (d Date) Key() string {
	return d.Format(dayLayout)
}

// MonthKey returns the payments-map key for this date's month.
func (d Date) MonthKey() string {
	return d.Format(monthLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// ParseDay parses a "2006-01-02" string back into a Date.
func ParseDay(s string) (Date, error) {
	t, err := time.Parse(dayLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// MonthKeyOf returns the month key of an arbitrary instant.
func MonthKeyOf(t time.Time) string {
	return t.Format(monthLayout)
}

// ParseMonthKey parses a "2006-01" key back to the first instant of the
// month. Useful when a month must be enumerated day by day.
func ParseMonthKey(s string) (time.Time, error) {
	t, err := time.Parse(monthLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidMonth
	}
	return t, nil
}

// ValidateName checks the shared naming rule for groups and students.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrEmptyName
	}
	if len(trimmed) > 120 {
		return ErrNameTooLong
	}
	return nil
}

// NormalizeSessionDays deduplicates and sorts a weekday set, validating
// that every value is a real weekday.
func NormalizeSessionDays(days []time.Weekday) ([]time.Weekday, error) {
	seen := make(map[time.Weekday]bool, len(days))
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday {
			return nil, ErrInvalidSessionDay
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// HasSessionDay reports whether the group holds sessions on the weekday.
func (g *Group) HasSessionDay(w time.Weekday) bool {
	for _, d := range g.SessionDays {
		if d == w {
			return true
		}
	}
	return false
}

// PaymentFor resolves a month's payment status, treating a missing entry
// as Unpaid.
func (s *Student) PaymentFor(monthKey string) PaymentStatus {
	if status, ok := s.Payments[monthKey]; ok && status == Paid {
		return Paid
	}
	return Unpaid
}

// JoinMonthKey returns the month key of the student's join date. Month
// keys compare chronologically as strings.
func (s *Student) JoinMonthKey() string {
	return s.JoinDate.MonthKey()
}

// Clone deep-copies a student, including both mark maps.
func (s *Student) Clone() *Student {
	c := &Student{
		ID:         s.ID,
		Name:       s.Name,
		JoinDate:   s.JoinDate,
		Attendance: make(map[string]AttendanceStatus, len(s.Attendance)),
		Payments:   make(map[string]PaymentStatus, len(s.Payments)),
		MonthlyFee: s.MonthlyFee,
	}
	for k, v := range s.Attendance {
		c.Attendance[k] = v
	}
	for k, v := range s.Payments {
		c.Payments[k] = v
	}
	return c
}

// Clone deep-copies a group and its students.
func (g *Group) Clone() *Group {
	c := &Group{
		ID:          g.ID,
		Name:        g.Name,
		SessionDays: append([]time.Weekday(nil), g.SessionDays...),
		Students:    make([]*Student, len(g.Students)),
	}
	for i, s := range g.Students {
		c.Students[i] = s.Clone()
	}
	return c
}
