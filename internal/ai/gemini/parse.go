package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"bakano/internal/ai"
	"bakano/internal/core"
)

// stripFences removes a surrounding markdown code fence, which models
// sometimes emit even when asked for bare JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func parseNames(raw string) ([]string, error) {
	var payload struct {
		Students []string `json:"students"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &payload); err != nil {
		return nil, fmt.Errorf("decode names: %w", err)
	}
	names := make([]string, 0, len(payload.Students))
	for _, n := range payload.Students {
		n = strings.TrimSpace(n)
		if n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}

func parseReport(raw string) (ai.ExtractedReport, error) {
	var payload struct {
		Groups []struct {
			Name     string `json:"name"`
			Students []struct {
				Name       string            `json:"name"`
				Attendance map[string]string `json:"attendance"`
				Payments   map[string]string `json:"payments"`
			} `json:"students"`
		} `json:"groups"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &payload); err != nil {
		return ai.ExtractedReport{}, fmt.Errorf("decode report: %w", err)
	}
	var report ai.ExtractedReport
	for _, g := range payload.Groups {
		group := ai.ExtractedGroup{Name: strings.TrimSpace(g.Name)}
		for _, s := range g.Students {
			name := strings.TrimSpace(s.Name)
			if name == "" {
				continue
			}
			st := ai.ExtractedStudent{
				Name:       name,
				Attendance: map[string]core.AttendanceStatus{},
				Payments:   map[string]core.PaymentStatus{},
			}
			for day, v := range s.Attendance {
				switch core.AttendanceStatus(strings.ToLower(strings.TrimSpace(v))) {
				case core.Present:
					st.Attendance[day] = core.Present
				case core.Absent:
					st.Attendance[day] = core.Absent
				}
			}
			for month, v := range s.Payments {
				switch core.PaymentStatus(strings.ToLower(strings.TrimSpace(v))) {
				case core.Paid:
					st.Payments[month] = core.Paid
				case core.Unpaid:
					st.Payments[month] = core.Unpaid
				}
			}
			group.Students = append(group.Students, st)
		}
		report.Groups = append(report.Groups, group)
	}
	return report, nil
}

func parseAbsenceReport(raw string) (ai.AbsenceReport, error) {
	var report ai.AbsenceReport
	if err := json.Unmarshal([]byte(stripFences(raw)), &report); err != nil {
		return ai.AbsenceReport{}, fmt.Errorf("decode absence report: %w", err)
	}
	if strings.TrimSpace(report.Summary) == "" {
		return ai.AbsenceReport{}, fmt.Errorf("absence report missing summary")
	}
	return report, nil
}

func encodeAbsenceRequest(req ai.AbsenceReportRequest) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func countStudents(r ai.ExtractedReport) int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Students)
	}
	return n
}
