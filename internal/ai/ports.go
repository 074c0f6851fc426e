// Package ai declares the ports for the hosted language-model features:
// extracting student data from uploaded documents and generating the
// narrative absence report. Implementations never write to the ledger;
// callers merge extracted data through the normal mutation path.
package ai

import (
	"context"
	"errors"

	"bakano/internal/core"
)

var (
	// ErrExtractionFailed is the hard failure: the document could not be
	// processed at all (transport error, unparseable model output).
	ErrExtractionFailed = errors.New("document extraction failed")

	// ErrNoStudentsFound is the soft failure: the document was processed
	// but no student data was found. Callers inform the user and leave
	// the ledger untouched.
	ErrNoStudentsFound = errors.New("no students found in document")
)

type (
	// ExtractRequest carries an uploaded document and its declared media
	// type (e.g. "application/pdf", "image/png").
	ExtractRequest struct {
		Data      []byte
		MediaType string
	}

	ExtractedStudent struct {
		Name       string
		Attendance map[string]core.AttendanceStatus
		Payments   map[string]core.PaymentStatus
	}

	ExtractedGroup struct {
		Name     string
		Students []ExtractedStudent
	}

	// ExtractedReport is the structured extraction of a full monthly
	// report document: groups, students, per-date attendance and
	// per-month payment status.
	ExtractedReport struct {
		Groups []ExtractedGroup
	}

	StudentAbsences struct {
		StudentName string   `json:"candidateName"`
		AbsentDates []string `json:"absentDates"`
	}

	AbsenceReportRequest struct {
		StartDate string            `json:"startDate"`
		EndDate   string            `json:"endDate"`
		Absences  []StudentAbsences `json:"absences"`
	}

	AbsenceReport struct {
		Summary         string   `json:"reportSummary"`
		Recommendations []string `json:"recommendations"`
	}
)

// NameExtractor pulls a flat list of candidate student names out of a
// document (roster photo, PDF list).
type NameExtractor interface {
	ExtractNames(ctx context.Context, req ExtractRequest) ([]string, error)
}

// ReportExtractor pulls a full structured record out of a previously
// printed report document.
type ReportExtractor interface {
	ExtractReport(ctx context.Context, req ExtractRequest) (ExtractedReport, error)
}

// AbsenceReporter turns absence data into a human-readable summary with
// recommendations.
type AbsenceReporter interface {
	GenerateAbsenceReport(ctx context.Context, req AbsenceReportRequest) (AbsenceReport, error)
}
