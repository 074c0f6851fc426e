package ledger

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"bakano/internal/core"
)

// newTestStore pins the clock and id generator for deterministic tests.
func newTestStore(now time.Time) *Store {
	s := New()
	s.now = func() time.Time { return now }
	n := 0
	s.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return s
}

func TestAddGroupValidation(t *testing.T) {
	s := newTestStore(time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC))

	if _, err := s.AddGroup("  ", []time.Weekday{time.Tuesday}); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if _, err := s.AddGroup("Groupe 1", []time.Weekday{time.Weekday(9)}); !errors.Is(err, core.ErrInvalidSessionDay) {
		t.Fatalf("expected ErrInvalidSessionDay, got %v", err)
	}

	g, err := s.AddGroup("Groupe 1", []time.Weekday{time.Friday, time.Tuesday})
	if err != nil {
		t.Fatalf("AddGroup: %v", err)
	}
	if g.ID == "" || g.Name != "Groupe 1" {
		t.Fatalf("unexpected group: %+v", g)
	}
	if len(g.SessionDays) != 2 || g.SessionDays[0] != time.Tuesday {
		t.Fatalf("session days not normalized: %v", g.SessionDays)
	}
}

func TestUpdateGroup(t *testing.T) {
	s := newTestStore(time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC))
	g, _ := s.AddGroup("Groupe 1", []time.Weekday{time.Tuesday, time.Friday})
	if _, err := s.AddStudent("Hamid Lehlou", g.ID, core.Money{Cents: 20000}); err != nil {
		t.Fatalf("AddStudent: %v", err)
	}

	if err := s.UpdateGroup("missing", "X", []time.Weekday{time.Monday}); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}

	if err := s.UpdateGroup(g.ID, "Groupe A", []time.Weekday{time.Monday, time.Wednesday}); err != nil {
		t.Fatalf("UpdateGroup: %v", err)
	}
	got, _ := s.Group(g.ID)
	if got.Name != "Groupe A" || got.SessionDays[0] != time.Monday {
		t.Fatalf("update not applied: %+v", got)
	}
	if len(got.Students) != 1 {
		t.Fatalf("update must not touch students, got %d", len(got.Students))
	}
}

func TestAddStudentSetsJoinDateAndOrder(t *testing.T) {
	now := time.Date(2024, 8, 15, 18, 30, 0, 0, time.UTC)
	s := newTestStore(now)
	g, _ := s.AddGroup("Groupe 1", []time.Weekday{time.Tuesday})

	if _, err := s.AddStudent("X", "missing", core.Money{}); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}

	first, err := s.AddStudent("Mohamed Dahi", g.ID, core.Money{Cents: 20000})
	if err != nil {
		t.Fatalf("AddStudent: %v", err)
	}
	if first.JoinDate.Key() != "2024-08-15" {
		t.Fatalf("joinDate = %s", first.JoinDate.Key())
	}
	if len(first.Attendance) != 0 || len(first.Payments) != 0 {
		t.Fatalf("fresh student must have empty mark maps")
	}

	second, _ := s.AddStudent("Karim Najib", g.ID, core.Money{Cents: 20000})
	got, _ := s.Group(g.ID)
	if got.Students[0].ID != first.ID || got.Students[1].ID != second.ID {
		t.Fatalf("insertion order not preserved")
	}
}

func TestRenameAndDeleteStudent(t *testing.T) {
	s := newTestStore(time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC))
	g, _ := s.AddGroup("Groupe 1", []time.Weekday{time.Tuesday})
	st, _ := s.AddStudent("Hamid", g.ID, core.Money{Cents: 20000})

	if err := s.RenameStudent("missing", "X"); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
	if err := s.RenameStudent(st.ID, "Hamid Lehlou"); err != nil {
		t.Fatalf("RenameStudent: %v", err)
	}
	got, _ := s.Group(g.ID)
	if got.Students[0].Name != "Hamid Lehlou" {
		t.Fatalf("rename not applied")
	}

	if err := s.DeleteStudent(st.ID); err != nil {
		t.Fatalf("DeleteStudent: %v", err)
	}
	// second delete of the same id reports not found
	if err := s.DeleteStudent(st.ID); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound on double delete, got %v", err)
	}
	got, _ = s.Group(g.ID)
	if len(got.Students) != 0 {
		t.Fatalf("student still present after delete")
	}
}

func TestToggleAttendanceCycle(t *testing.T) {
	s := newTestStore(time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC))
	g, _ := s.AddGroup("Groupe 1", []time.Weekday{time.Tuesday})
	st, _ := s.AddStudent("Hamid", g.ID, core.Money{Cents: 20000})
	const day = "2024-08-06"

	status := func() (core.AttendanceStatus, bool) {
		got, _ := s.Group(g.ID)
		v, ok := got.Students[0].Attendance[day]
		return v, ok
	}

	// unmarked -> present -> absent -> unmarked, threading the observed value
	if err := s.ToggleAttendance(st.ID, day, ""); err != nil {
		t.Fatalf("toggle 1: %v", err)
	}
	if v, ok := status(); !ok || v != core.Present {
		t.Fatalf("after 1st toggle: %v %v", v, ok)
	}
	if err := s.ToggleAttendance(st.ID, day, core.Present); err != nil {
		t.Fatalf("toggle 2: %v", err)
	}
	if v, ok := status(); !ok || v != core.Absent {
		t.Fatalf("after 2nd toggle: %v %v", v, ok)
	}
	if err := s.ToggleAttendance(st.ID, day, core.Absent); err != nil {
		t.Fatalf("toggle 3: %v", err)
	}
	if _, ok := status(); ok {
		t.Fatalf("after 3rd toggle the entry must be deleted")
	}

	if err := s.ToggleAttendance(st.ID, "not-a-date", ""); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if err := s.ToggleAttendance("missing", day, ""); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("expected ErrStudentNotFound, got %v", err)
	}
}

func TestTogglePaymentFlip(t *testing.T) {
	s := newTestStore(time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC))
	g, _ := s.AddGroup("Groupe 1", []time.Weekday{time.Tuesday})
	st, _ := s.AddStudent("Hamid", g.ID, core.Money{Cents: 20000})
	const month = "2024-08"

	payment := func() core.PaymentStatus {
		got, _ := s.Group(g.ID)
		return got.Students[0].PaymentFor(month)
	}

	// first toggle on a fresh student produces paid
	if err := s.TogglePayment(st.ID, month); err != nil {
		t.Fatalf("TogglePayment: %v", err)
	}
	if payment() != core.Paid {
		t.Fatalf("expected paid after first toggle")
	}
	// second toggle returns to unpaid
	if err := s.TogglePayment(st.ID, month); err != nil {
		t.Fatalf("TogglePayment: %v", err)
	}
	if payment() != core.Unpaid {
		t.Fatalf("expected unpaid after second toggle")
	}

	if err := s.TogglePayment(st.ID, "2024-13-01"); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestRevisionAndAllOrNothing(t *testing.T) {
	s := newTestStore(time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC))
	g, _ := s.AddGroup("Groupe 1", []time.Weekday{time.Tuesday})
	rev := s.Revision()

	// failed mutations leave the revision (and therefore the state) alone
	if _, err := s.AddStudent("", g.ID, core.Money{}); err == nil {
		t.Fatalf("expected validation error")
	}
	if err := s.TogglePayment("missing", "2024-08"); err == nil {
		t.Fatalf("expected not found")
	}
	if s.Revision() != rev {
		t.Fatalf("failed mutation bumped revision")
	}

	if _, err := s.AddStudent("Hamid", g.ID, core.Money{Cents: 20000}); err != nil {
		t.Fatalf("AddStudent: %v", err)
	}
	if s.Revision() != rev+1 {
		t.Fatalf("successful mutation must bump revision")
	}
}

func TestRestoreRebuildsIndexes(t *testing.T) {
	s := newTestStore(time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC))
	groups := []*core.Group{{
		ID:          "g1",
		Name:        "Groupe 1",
		SessionDays: []time.Weekday{time.Tuesday, time.Friday},
		Students: []*core.Student{{
			ID:         "s1",
			Name:       "Hamid Lehlou",
			JoinDate:   core.NewDate(2024, time.July, 1),
			Attendance: map[string]core.AttendanceStatus{},
			Payments:   map[string]core.PaymentStatus{},
			MonthlyFee: core.Money{Cents: 20000},
		}},
	}}
	s.Restore(groups)

	if err := s.RenameStudent("s1", "Hamid L."); err != nil {
		t.Fatalf("student index not rebuilt: %v", err)
	}
	if err := s.DeleteStudent("s1"); err != nil {
		t.Fatalf("group index not rebuilt: %v", err)
	}
}

func TestDeleteGroup(t *testing.T) {
	s := newTestStore(time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC))
	g, _ := s.AddGroup("Groupe 1", []time.Weekday{time.Tuesday})
	st, _ := s.AddStudent("Hamid", g.ID, core.Money{Cents: 20000})

	if err := s.DeleteGroup("missing"); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}
	if err := s.DeleteGroup(g.ID); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}
	if _, ok := s.Group(g.ID); ok {
		t.Fatalf("group still present")
	}
	// orphaned student ids are gone too
	if err := s.RenameStudent(st.ID, "X"); !errors.Is(err, ErrStudentNotFound) {
		t.Fatalf("student index not cleaned: %v", err)
	}
}
