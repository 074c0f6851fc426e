// Package snapshot defines the durable JSON document that the whole
// ledger is serialized to on every write-through save, and the
// conversions between that document and the in-memory domain types.
package snapshot

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"bakano/internal/core"
)

// DefaultSessionDays is the fallback weekday pair applied when a stored
// group predates the sessionDays field.
var DefaultSessionDays = []time.Weekday{time.Tuesday, time.Friday}

type (
	// Document is the full persisted state: a single JSON document,
	// written whole on every mutation (last write wins).
	Document struct {
		Groups []Group `json:"groups"`
	}

	Group struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		SessionDays []int     `json:"sessionDays"`
		Students    []Student `json:"students"`
	}

	Student struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		// JoinDate is an ISO date string ("2006-01-02").
		JoinDate   string            `json:"joinDate"`
		Attendance map[string]string `json:"attendance"`
		Payments   map[string]string `json:"payments"`
		// MonthlyFee is a decimal amount in dirhams, not cents.
		MonthlyFee float64 `json:"monthlyFee"`
	}
)

// ToJSON serializes the document.
func (d *Document) ToJSON() ([]byte, error) {
	return json.Marshal(d)
}

// FromJSON parses a stored document.
func FromJSON(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &d, nil
}

// FromGroups builds the persisted document from a ledger snapshot.
func FromGroups(groups []*core.Group) *Document {
	doc := &Document{Groups: make([]Group, len(groups))}
	for i, g := range groups {
		sg := Group{
			ID:          g.ID,
			Name:        g.Name,
			SessionDays: make([]int, len(g.SessionDays)),
			Students:    make([]Student, len(g.Students)),
		}
		for j, w := range g.SessionDays {
			sg.SessionDays[j] = int(w)
		}
		for j, st := range g.Students {
			ss := Student{
				ID:         st.ID,
				Name:       st.Name,
				JoinDate:   st.JoinDate.Key(),
				Attendance: make(map[string]string, len(st.Attendance)),
				Payments:   make(map[string]string, len(st.Payments)),
				MonthlyFee: float64(st.MonthlyFee.Cents) / 100.0,
			}
			for k, v := range st.Attendance {
				ss.Attendance[k] = string(v)
			}
			for k, v := range st.Payments {
				ss.Payments[k] = string(v)
			}
			sg.Students[j] = ss
		}
		doc.Groups[i] = sg
	}
	return doc
}

// ToGroups converts a stored document back to domain groups. Date strings
// are parsed back to calendar dates; a missing sessionDays list falls
// back to DefaultSessionDays; mark entries with unknown status values are
// dropped rather than failing the whole load.
func (d *Document) ToGroups() ([]*core.Group, error) {
	groups := make([]*core.Group, len(d.Groups))
	for i, sg := range d.Groups {
		g := &core.Group{
			ID:       sg.ID,
			Name:     sg.Name,
			Students: make([]*core.Student, len(sg.Students)),
		}
		if len(sg.SessionDays) == 0 {
			g.SessionDays = append([]time.Weekday(nil), DefaultSessionDays...)
		} else {
			days := make([]time.Weekday, len(sg.SessionDays))
			for j, n := range sg.SessionDays {
				days[j] = time.Weekday(n)
			}
			normalized, err := core.NormalizeSessionDays(days)
			if err != nil {
				return nil, fmt.Errorf("group %q: %w", sg.Name, err)
			}
			g.SessionDays = normalized
		}

		for j, ss := range sg.Students {
			join, err := parseJoinDate(ss.JoinDate)
			if err != nil {
				return nil, fmt.Errorf("student %q: %w", ss.Name, err)
			}
			st := &core.Student{
				ID:         ss.ID,
				Name:       ss.Name,
				JoinDate:   join,
				Attendance: make(map[string]core.AttendanceStatus, len(ss.Attendance)),
				Payments:   make(map[string]core.PaymentStatus, len(ss.Payments)),
				MonthlyFee: core.Money{Cents: int64(math.Round(ss.MonthlyFee * 100))},
			}
			for k, v := range ss.Attendance {
				switch core.AttendanceStatus(v) {
				case core.Present, core.Absent:
					st.Attendance[k] = core.AttendanceStatus(v)
				}
			}
			for k, v := range ss.Payments {
				switch core.PaymentStatus(v) {
				case core.Paid, core.Unpaid:
					st.Payments[k] = core.PaymentStatus(v)
				}
			}
			g.Students[j] = st
		}
		groups[i] = g
	}
	return groups, nil
}

// parseJoinDate accepts the canonical day layout and, for documents
// written by earlier versions, a full RFC 3339 timestamp.
func parseJoinDate(s string) (core.Date, error) {
	if d, err := core.ParseDay(s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("join date %q: %w", s, core.ErrInvalidDate)
	}
	return core.DateOf(t), nil
}
