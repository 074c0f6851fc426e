package http

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"bakano/internal/ai"
	"bakano/internal/core"
	applog "bakano/internal/log"
	"bakano/internal/report"
)

const maxUploadBytes = 10 << 20 // 10MB

// handleExtract accepts an uploaded document and merges what the model
// reads out of it into the ledger. mode=names expects a target group
// and adds plain student names; mode=report re-imports a printed
// monthly report.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if s.nameExtractor == nil || s.reportExtractor == nil {
		errorFragment(w, http.StatusServiceUnavailable, "Document extraction is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		errorFragment(w, http.StatusBadRequest, "Upload too large or malformed")
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		errorFragment(w, http.StatusBadRequest, "Missing document upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		errorFragment(w, http.StatusBadRequest, "Failed to read upload")
		return
	}
	mediaType := header.Header.Get("Content-Type")
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	req := ai.ExtractRequest{Data: data, MediaType: mediaType}

	switch r.FormValue("mode") {
	case "report":
		s.extractReport(w, r, req)
	default:
		s.extractNames(w, r, req)
	}
}

func (s *Server) extractNames(w http.ResponseWriter, r *http.Request, req ai.ExtractRequest) {
	groupID := r.FormValue("group")

	names, err := s.nameExtractor.ExtractNames(r.Context(), req)
	if err != nil {
		writeExtractionError(w, r, err)
		return
	}

	added, err := s.ledger.MergeExtractedNames(r.Context(), groupID, names, s.defaultFee)
	if err != nil {
		writeLedgerError(w, r, err, "Failed to merge extracted names")
		return
	}

	slog.InfoContext(r.Context(), "Extracted names merged",
		applog.FieldGroupID, groupID,
		"extracted", len(names),
		"added", added,
		applog.FieldComponent, applog.ComponentAI)
	s.renderRoster(w, r)
}

func (s *Server) extractReport(w http.ResponseWriter, r *http.Request, req ai.ExtractRequest) {
	extracted, err := s.reportExtractor.ExtractReport(r.Context(), req)
	if err != nil {
		writeExtractionError(w, r, err)
		return
	}

	if err := s.ledger.MergeExtractedReport(r.Context(), extracted, s.defaultFee, s.defaultSessionDays); err != nil {
		writeLedgerError(w, r, err, "Failed to merge extracted report")
		return
	}

	slog.InfoContext(r.Context(), "Extracted report merged",
		"groups", len(extracted.Groups),
		applog.FieldComponent, applog.ComponentAI)
	s.renderRoster(w, r)
}

func writeExtractionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ai.ErrNoStudentsFound):
		errorFragment(w, http.StatusUnprocessableEntity, "No student data found in the document")
	case errors.Is(err, ai.ErrExtractionFailed):
		errorFragment(w, http.StatusBadGateway, "Document could not be processed")
	default:
		slog.ErrorContext(r.Context(), "Extraction failed",
			applog.FieldError, err, applog.FieldComponent, applog.ComponentAI)
		errorFragment(w, http.StatusInternalServerError, "Document could not be processed")
	}
}

// handleAbsenceReport generates the narrative absence summary for a
// date range and renders it as an html fragment.
func (s *Server) handleAbsenceReport(w http.ResponseWriter, r *http.Request) {
	if s.absenceReporter == nil {
		errorFragment(w, http.StatusServiceUnavailable, "Absence reports are not configured")
		return
	}
	if err := r.ParseForm(); err != nil {
		errorFragment(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	start, err := core.ParseDay(r.Form.Get("start"))
	if err != nil {
		errorFragment(w, http.StatusUnprocessableEntity, "Invalid start date")
		return
	}
	end, err := core.ParseDay(r.Form.Get("end"))
	if err != nil {
		errorFragment(w, http.StatusUnprocessableEntity, "Invalid end date")
		return
	}

	req, err := report.BuildAbsenceRequest(s.ledger.Groups(), start, end)
	if err != nil {
		errorFragment(w, http.StatusUnprocessableEntity, "Start date must not be after end date")
		return
	}
	if len(req.Absences) == 0 {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<div class="report"><p>No absences recorded in this period.</p></div>`))
		return
	}

	result, err := s.absenceReporter.GenerateAbsenceReport(r.Context(), req)
	if err != nil {
		writeExtractionError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	out := `<div class="report"><p>` + template.HTMLEscapeString(result.Summary) + `</p>`
	if len(result.Recommendations) > 0 {
		out += `<ul>`
		for _, rec := range result.Recommendations {
			out += `<li>` + template.HTMLEscapeString(rec) + `</li>`
		}
		out += `</ul>`
	}
	out += `</div>`
	_, _ = w.Write([]byte(out))
}

// handleMonthlyPDF streams the printable monthly report for all groups.
func (s *Server) handleMonthlyPDF(w http.ResponseWriter, r *http.Request) {
	month := monthOrNow(r.URL.Query().Get("month"))

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report-%s.pdf"`, month))

	if err := report.RenderPDF(w, s.ledger.Groups(), month, s.warnLimit); err != nil {
		slog.ErrorContext(r.Context(), "PDF render failed",
			applog.FieldError, err,
			applog.FieldMonth, month,
			applog.FieldComponent, applog.ComponentHTTP)
	}
}
