package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bakano/internal/ai"
	"bakano/internal/core"
	"bakano/internal/ledger"
	"bakano/internal/snapshot"
)

// Outbound ports. The SQLite repository and the AMQP client satisfy
// these; tests substitute in-memory fakes.
type (
	SnapshotStore interface {
		SaveSnapshot(ctx context.Context, document []byte) error
		LoadSnapshot(ctx context.Context) (document []byte, ok bool, err error)
	}

	SyncPublisher interface {
		PublishLedgerSync(ctx context.Context, revision int64) error
	}
)

// LedgerService orchestrates ledger mutations across the in-memory
// store, SQLite and AMQP. Every successful mutation is written through
// to storage as a whole-document snapshot; persistence and publish
// failures are logged but never fail the mutation, the in-memory state
// stays authoritative for the session.
type LedgerService struct {
	store     *ledger.Store
	storage   SnapshotStore
	publisher SyncPublisher
}

func NewLedgerService(store *ledger.Store, storage SnapshotStore, publisher SyncPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		storage:   storage,
		publisher: publisher,
	}
}

// Seed loads the persisted snapshot into the store. A missing snapshot
// is a fresh install and leaves the ledger empty; a corrupt one is an
// error, silently discarding saved data would be worse than refusing to
// start.
func (s *LedgerService) Seed(ctx context.Context) error {
	data, ok, err := s.storage.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		slog.InfoContext(ctx, "No saved snapshot, starting with empty ledger")
		return nil
	}
	doc, err := snapshot.FromJSON(data)
	if err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}
	groups, err := doc.ToGroups()
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	s.store.Restore(groups)
	slog.InfoContext(ctx, "Ledger seeded from snapshot", "groups", len(groups))
	return nil
}

func (s *LedgerService) CreateGroup(ctx context.Context, name string, sessionDays []time.Weekday) (*core.Group, error) {
	g, err := s.store.AddGroup(name, sessionDays)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx)
	return g, nil
}

func (s *LedgerService) UpdateGroup(ctx context.Context, groupID, name string, sessionDays []time.Weekday) error {
	if err := s.store.UpdateGroup(groupID, name, sessionDays); err != nil {
		return err
	}
	s.afterMutation(ctx)
	return nil
}

func (s *LedgerService) DeleteGroup(ctx context.Context, groupID string) error {
	if err := s.store.DeleteGroup(groupID); err != nil {
		return err
	}
	s.afterMutation(ctx)
	return nil
}

func (s *LedgerService) AddStudent(ctx context.Context, name, groupID string, fee core.Money) (*core.Student, error) {
	st, err := s.store.AddStudent(name, groupID, fee)
	if err != nil {
		return nil, err
	}
	s.afterMutation(ctx)
	return st, nil
}

func (s *LedgerService) RenameStudent(ctx context.Context, studentID, newName string) error {
	if err := s.store.RenameStudent(studentID, newName); err != nil {
		return err
	}
	s.afterMutation(ctx)
	return nil
}

// DeleteStudent removes a student. Deleting an id that is already gone
// is treated as success so a double click cannot surface an error.
func (s *LedgerService) DeleteStudent(ctx context.Context, studentID string) error {
	if err := s.store.DeleteStudent(studentID); err != nil {
		if err == ledger.ErrStudentNotFound {
			slog.WarnContext(ctx, "Delete of unknown student ignored", "studentID", studentID)
			return nil
		}
		return err
	}
	s.afterMutation(ctx)
	return nil
}

func (s *LedgerService) ToggleAttendance(ctx context.Context, studentID, dayKey string, observed core.AttendanceStatus) error {
	if err := s.store.ToggleAttendance(studentID, dayKey, observed); err != nil {
		return err
	}
	s.afterMutation(ctx)
	return nil
}

func (s *LedgerService) TogglePayment(ctx context.Context, studentID, monthKey string) error {
	if err := s.store.TogglePayment(studentID, monthKey); err != nil {
		return err
	}
	s.afterMutation(ctx)
	return nil
}

// MergeExtractedNames adds extracted names to a group, skipping names
// already present there (case-insensitive). Returns how many students
// were created.
func (s *LedgerService) MergeExtractedNames(ctx context.Context, groupID string, names []string, fee core.Money) (int, error) {
	g, ok := s.store.Group(groupID)
	if !ok {
		return 0, ledger.ErrGroupNotFound
	}
	existing := make(map[string]bool, len(g.Students))
	for _, st := range g.Students {
		existing[foldName(st.Name)] = true
	}

	added := 0
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || existing[foldName(name)] {
			continue
		}
		if _, err := s.store.AddStudent(name, groupID, fee); err != nil {
			return added, fmt.Errorf("add %q: %w", name, err)
		}
		existing[foldName(name)] = true
		added++
	}
	if added > 0 {
		s.afterMutation(ctx)
	}
	return added, nil
}

// MergeExtractedReport folds a structured document extraction into the
// ledger. Groups and students are matched by name and created when
// missing; attendance and payment marks from the document overwrite the
// corresponding entries, everything else is left alone.
func (s *LedgerService) MergeExtractedReport(ctx context.Context, report ai.ExtractedReport, fee core.Money, sessionDays []time.Weekday) error {
	mutated := false
	for _, eg := range report.Groups {
		groupName := strings.TrimSpace(eg.Name)
		if groupName == "" {
			groupName = "Imported"
		}
		groupID, ok := s.store.GroupIDByName(groupName)
		if !ok {
			g, err := s.store.AddGroup(groupName, sessionDays)
			if err != nil {
				return fmt.Errorf("create group %q: %w", groupName, err)
			}
			groupID = g.ID
			mutated = true
		}
		for _, es := range eg.Students {
			changed, err := s.mergeStudent(groupID, es, fee)
			if err != nil {
				return err
			}
			mutated = mutated || changed
		}
	}
	if mutated {
		s.afterMutation(ctx)
	}
	return nil
}

// mergeStudent upserts one extracted student and drives the mark maps
// to the extracted values through the regular toggle operations.
func (s *LedgerService) mergeStudent(groupID string, es ai.ExtractedStudent, fee core.Money) (bool, error) {
	g, ok := s.store.Group(groupID)
	if !ok {
		return false, ledger.ErrGroupNotFound
	}

	var current *core.Student
	for _, st := range g.Students {
		if foldName(st.Name) == foldName(es.Name) {
			current = st
			break
		}
	}
	changed := false
	if current == nil {
		st, err := s.store.AddStudent(strings.TrimSpace(es.Name), groupID, fee)
		if err != nil {
			return false, fmt.Errorf("add %q: %w", es.Name, err)
		}
		current = st
		changed = true
	}

	for day, want := range es.Attendance {
		have := current.Attendance[day]
		if have == want {
			continue
		}
		// The cycle maps observed=present to absent and anything else
		// to present, so the right observed value reaches any target in
		// one step.
		observed := core.AttendanceStatus("")
		if want == core.Absent {
			observed = core.Present
		}
		if err := s.store.ToggleAttendance(current.ID, day, observed); err != nil {
			return changed, fmt.Errorf("attendance %q %s: %w", es.Name, day, err)
		}
		changed = true
	}
	for month, want := range es.Payments {
		if current.PaymentFor(month) == want {
			continue
		}
		if err := s.store.TogglePayment(current.ID, month); err != nil {
			return changed, fmt.Errorf("payment %q %s: %w", es.Name, month, err)
		}
		changed = true
	}
	return changed, nil
}

// Groups returns a deep copy of the whole ledger.
func (s *LedgerService) Groups() []*core.Group {
	return s.store.Snapshot()
}

func (s *LedgerService) Group(groupID string) (*core.Group, bool) {
	return s.store.Group(groupID)
}

func (s *LedgerService) Revision() int64 {
	return s.store.Revision()
}

// afterMutation writes the whole ledger through to storage and tells
// the backup worker a new revision exists. Both steps are best effort.
func (s *LedgerService) afterMutation(ctx context.Context) {
	doc := snapshot.FromGroups(s.store.Snapshot())
	data, err := doc.ToJSON()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to serialize snapshot", "error", err)
		return
	}
	if s.storage != nil {
		if err := s.storage.SaveSnapshot(ctx, data); err != nil {
			slog.ErrorContext(ctx, "Failed to persist snapshot", "error", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishLedgerSync(ctx, s.store.Revision()); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync message",
				"revision", s.store.Revision(), "error", err)
		}
	}
}

func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
