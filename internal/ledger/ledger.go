// Package ledger owns the authoritative in-memory collection of groups
// and students and applies validated mutations to it.
//
// Storage is arena-style: a flat student table keyed by id plus a
// student-to-group index, so id-based operations never need to know the
// owning group up front and duplicate ids cannot appear.
package ledger

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"bakano/internal/core"
)

var (
	ErrGroupNotFound   = errors.New("group not found")
	ErrStudentNotFound = errors.New("student not found")
)

// Store holds the canonical ledger state. All mutations are all-or-nothing:
// validation happens before any field is touched.
//
// The store is safe for concurrent use; the attendance toggle keeps the
// caller-observed-status protocol but applies it under the write lock, so
// two racing toggles cannot corrupt the cycle.
type Store struct {
	mu sync.RWMutex

	groups       []*core.Group
	groupByID    map[string]*core.Group
	students     map[string]*core.Student
	studentGroup map[string]string // student id -> group id
	revision     int64

	now   func() time.Time
	newID func() string
}

func New() *Store {
	return &Store{
		groupByID:    make(map[string]*core.Group),
		students:     make(map[string]*core.Student),
		studentGroup: make(map[string]string),
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

// AddGroup creates a group with a fresh id. Any non-empty set of valid
// weekdays is accepted; stricter form rules (exactly two distinct days)
// belong to the presentation layer.
func (s *Store) AddGroup(name string, sessionDays []time.Weekday) (*core.Group, error) {
	if err := core.ValidateName(name); err != nil {
		return nil, err
	}
	days, err := core.NormalizeSessionDays(sessionDays)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g := &core.Group{
		ID:          s.newID(),
		Name:        name,
		SessionDays: days,
	}
	s.groups = append(s.groups, g)
	s.groupByID[g.ID] = g
	s.revision++
	return g.Clone(), nil
}

// UpdateGroup overwrites a group's name and session days in place. The
// student collection is never touched.
func (s *Store) UpdateGroup(groupID, name string, sessionDays []time.Weekday) error {
	if err := core.ValidateName(name); err != nil {
		return err
	}
	days, err := core.NormalizeSessionDays(sessionDays)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groupByID[groupID]
	if !ok {
		return ErrGroupNotFound
	}
	g.Name = name
	g.SessionDays = days
	s.revision++
	return nil
}

// DeleteGroup removes a group and all of its students.
func (s *Store) DeleteGroup(groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groupByID[groupID]
	if !ok {
		return ErrGroupNotFound
	}
	for _, st := range g.Students {
		delete(s.students, st.ID)
		delete(s.studentGroup, st.ID)
	}
	delete(s.groupByID, groupID)
	for i, other := range s.groups {
		if other.ID == groupID {
			s.groups = append(s.groups[:i], s.groups[i+1:]...)
			break
		}
	}
	s.revision++
	return nil
}

// AddStudent creates a student in the given group with joinDate = now,
// empty mark maps and a fresh id. Order within the group is preserved.
func (s *Store) AddStudent(name, groupID string, fee core.Money) (*core.Student, error) {
	if err := core.ValidateName(name); err != nil {
		return nil, err
	}
	if err := fee.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groupByID[groupID]
	if !ok {
		return nil, ErrGroupNotFound
	}

	st := &core.Student{
		ID:         s.newID(),
		Name:       name,
		JoinDate:   core.DateOf(s.now()),
		Attendance: make(map[string]core.AttendanceStatus),
		Payments:   make(map[string]core.PaymentStatus),
		MonthlyFee: fee,
	}
	g.Students = append(g.Students, st)
	s.students[st.ID] = st
	s.studentGroup[st.ID] = g.ID
	s.revision++
	return st.Clone(), nil
}

// RenameStudent updates a student's name wherever it lives.
func (s *Store) RenameStudent(studentID, newName string) error {
	if err := core.ValidateName(newName); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.students[studentID]
	if !ok {
		return ErrStudentNotFound
	}
	st.Name = newName
	s.revision++
	return nil
}

// DeleteStudent removes a student from its owning group. A second delete
// of the same id reports ErrStudentNotFound; callers that need to
// tolerate duplicate clicks ignore that error.
func (s *Store) DeleteStudent(studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	groupID, ok := s.studentGroup[studentID]
	if !ok {
		return ErrStudentNotFound
	}
	g := s.groupByID[groupID]
	for i, st := range g.Students {
		if st.ID == studentID {
			g.Students = append(g.Students[:i], g.Students[i+1:]...)
			break
		}
	}
	delete(s.students, studentID)
	delete(s.studentGroup, studentID)
	s.revision++
	return nil
}

// ToggleAttendance advances the three-state cycle for the given day,
// relative to the status the caller last observed:
//
//	unmarked (or anything else) -> present
//	present                     -> absent
//	absent                      -> unmarked (entry deleted)
//
// dayKey must be a "2006-01-02" string.
func (s *Store) ToggleAttendance(studentID, dayKey string, observed core.AttendanceStatus) error {
	if _, err := core.ParseDay(dayKey); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.students[studentID]
	if !ok {
		return ErrStudentNotFound
	}
	switch observed {
	case core.Present:
		st.Attendance[dayKey] = core.Absent
	case core.Absent:
		delete(st.Attendance, dayKey)
	default:
		st.Attendance[dayKey] = core.Present
	}
	s.revision++
	return nil
}

// TogglePayment flips the month between paid and unpaid. A missing entry
// counts as unpaid, so the first toggle always marks the month paid.
// monthKey must be a "2006-01" string.
func (s *Store) TogglePayment(studentID, monthKey string) error {
	if _, err := core.ParseMonthKey(monthKey); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.students[studentID]
	if !ok {
		return ErrStudentNotFound
	}
	if st.PaymentFor(monthKey) == core.Paid {
		st.Payments[monthKey] = core.Unpaid
	} else {
		st.Payments[monthKey] = core.Paid
	}
	s.revision++
	return nil
}

// Snapshot returns a deep copy of every group in insertion order. The
// derived-view calculators and the persistence codec work on snapshots,
// never on live store internals.
func (s *Store) Snapshot() []*core.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*core.Group, len(s.groups))
	for i, g := range s.groups {
		out[i] = g.Clone()
	}
	return out
}

// Group returns a deep copy of a single group.
func (s *Store) Group(groupID string) (*core.Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groupByID[groupID]
	if !ok {
		return nil, false
	}
	return g.Clone(), true
}

// GroupIDByName looks up a group id by exact name. Used when merging
// extracted documents that reference groups by name only.
func (s *Store) GroupIDByName(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.groups {
		if g.Name == name {
			return g.ID, true
		}
	}
	return "", false
}

// Restore replaces the whole ledger with loaded state, rebuilding the
// id indexes. Used once at startup to seed from the persistence adapter.
func (s *Store) Restore(groups []*core.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups = make([]*core.Group, 0, len(groups))
	s.groupByID = make(map[string]*core.Group, len(groups))
	s.students = make(map[string]*core.Student)
	s.studentGroup = make(map[string]string)

	for _, g := range groups {
		c := g.Clone()
		s.groups = append(s.groups, c)
		s.groupByID[c.ID] = c
		for _, st := range c.Students {
			s.students[st.ID] = st
			s.studentGroup[st.ID] = c.ID
		}
	}
}

// Revision increases by one on every successful mutation.
func (s *Store) Revision() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}
