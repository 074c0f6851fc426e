package http

import (
	"log/slog"
	"net/http"

	"bakano/internal/core"
	applog "bakano/internal/log"
)

func (s *Server) handleAddStudent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		errorFragment(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	groupID := r.Form.Get("group")
	fee, err := s.parseFee(r.Form.Get("fee"))
	if err != nil {
		errorFragment(w, http.StatusUnprocessableEntity, "Invalid fee")
		return
	}

	st, err := s.ledger.AddStudent(r.Context(), name, groupID, fee)
	if err != nil {
		writeLedgerError(w, r, err, "Failed to add student")
		return
	}

	slog.InfoContext(r.Context(), "Student added",
		applog.FieldStudentID, st.ID,
		applog.FieldGroupID, groupID,
		applog.FieldComponent, applog.ComponentLedger)
	s.renderRoster(w, r)
}

func (s *Server) handleRenameStudent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		errorFragment(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	studentID := r.PathValue("id")
	newName := sanitizeInput(r.Form.Get("name"))

	if err := s.ledger.RenameStudent(r.Context(), studentID, newName); err != nil {
		writeLedgerError(w, r, err, "Failed to rename student")
		return
	}

	slog.InfoContext(r.Context(), "Student renamed",
		applog.FieldStudentID, studentID, applog.FieldComponent, applog.ComponentLedger)
	s.renderRoster(w, r)
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		errorFragment(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	studentID := r.PathValue("id")
	if err := s.ledger.DeleteStudent(r.Context(), studentID); err != nil {
		writeLedgerError(w, r, err, "Failed to delete student")
		return
	}

	slog.InfoContext(r.Context(), "Student deleted",
		applog.FieldStudentID, studentID, applog.FieldComponent, applog.ComponentLedger)
	s.renderRoster(w, r)
}

// handleToggleAttendance advances the mark cycle for one student and
// day. The form posts the status it was rendered with, so concurrent
// tabs advance the cycle rather than fight over it.
func (s *Server) handleToggleAttendance(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		errorFragment(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	studentID := r.PathValue("id")
	dayKey := r.Form.Get("date")
	observed := core.AttendanceStatus(r.Form.Get("observed"))

	if err := s.ledger.ToggleAttendance(r.Context(), studentID, dayKey, observed); err != nil {
		writeLedgerError(w, r, err, "Failed to toggle attendance")
		return
	}
	s.renderRoster(w, r)
}

func (s *Server) handleTogglePayment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		errorFragment(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	studentID := r.PathValue("id")
	monthKey := monthOrNow(r.Form.Get("month"))

	if err := s.ledger.TogglePayment(r.Context(), studentID, monthKey); err != nil {
		writeLedgerError(w, r, err, "Failed to toggle payment")
		return
	}
	s.renderRoster(w, r)
}
