package http

import (
	"errors"
	"log/slog"
	"net/http"

	"bakano/internal/core"
	"bakano/internal/ledger"
	applog "bakano/internal/log"
)

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		errorFragment(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	days, err := parseSessionDays(r.Form["sessionDays"])
	if err != nil {
		errorFragment(w, http.StatusUnprocessableEntity, "Invalid session days")
		return
	}
	// The form asks for exactly two distinct weekdays.
	if len(days) != 2 {
		errorFragment(w, http.StatusUnprocessableEntity, "Pick two distinct session days")
		return
	}

	g, err := s.ledger.CreateGroup(r.Context(), name, days)
	if err != nil {
		writeLedgerError(w, r, err, "Failed to create group")
		return
	}

	slog.InfoContext(r.Context(), "Group created",
		applog.FieldGroupID, g.ID, applog.FieldComponent, applog.ComponentLedger)
	s.renderRoster(w, r)
}

func (s *Server) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		errorFragment(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	groupID := r.PathValue("id")
	name := sanitizeInput(r.Form.Get("name"))
	days, err := parseSessionDays(r.Form["sessionDays"])
	if err != nil {
		errorFragment(w, http.StatusUnprocessableEntity, "Invalid session days")
		return
	}
	if len(days) != 2 {
		errorFragment(w, http.StatusUnprocessableEntity, "Pick two distinct session days")
		return
	}

	if err := s.ledger.UpdateGroup(r.Context(), groupID, name, days); err != nil {
		writeLedgerError(w, r, err, "Failed to update group")
		return
	}

	slog.InfoContext(r.Context(), "Group updated",
		applog.FieldGroupID, groupID, applog.FieldComponent, applog.ComponentLedger)
	s.renderRoster(w, r)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		errorFragment(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	groupID := r.PathValue("id")
	if err := s.ledger.DeleteGroup(r.Context(), groupID); err != nil {
		writeLedgerError(w, r, err, "Failed to delete group")
		return
	}

	slog.InfoContext(r.Context(), "Group deleted",
		applog.FieldGroupID, groupID, applog.FieldComponent, applog.ComponentLedger)
	s.renderRoster(w, r)
}

// writeLedgerError maps domain errors to form-friendly fragments.
func writeLedgerError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, core.ErrEmptyName), errors.Is(err, core.ErrNameTooLong):
		errorFragment(w, http.StatusUnprocessableEntity, "Invalid name")
	case errors.Is(err, core.ErrInvalidFee):
		errorFragment(w, http.StatusUnprocessableEntity, "Invalid fee")
	case errors.Is(err, core.ErrInvalidSessionDay):
		errorFragment(w, http.StatusUnprocessableEntity, "Invalid session days")
	case errors.Is(err, core.ErrInvalidDate), errors.Is(err, core.ErrInvalidMonth):
		errorFragment(w, http.StatusUnprocessableEntity, "Invalid date")
	case errors.Is(err, ledger.ErrGroupNotFound), errors.Is(err, ledger.ErrStudentNotFound):
		errorFragment(w, http.StatusNotFound, "Not found")
	default:
		slog.ErrorContext(r.Context(), fallback,
			applog.FieldError, err, applog.FieldComponent, applog.ComponentLedger)
		errorFragment(w, http.StatusInternalServerError, fallback)
	}
}
