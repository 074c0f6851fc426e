package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bakano/internal/core"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// monthOrNow returns the "month" query/form value when it parses as a
// month key, otherwise the current month.
func monthOrNow(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "" {
		if _, err := core.ParseMonthKey(raw); err == nil {
			return raw
		}
	}
	return core.MonthKeyOf(time.Now())
}

// parseSessionDays reads repeated weekday number values from a form.
// Duplicates collapse during normalization, so two identical selects
// come back as a single day.
func parseSessionDays(values []string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, part := range values {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, core.ErrInvalidSessionDay
		}
		days = append(days, time.Weekday(n))
	}
	return core.NormalizeSessionDays(days)
}

// parseFee reads a decimal fee form value; empty means the configured
// default.
func (s *Server) parseFee(raw string) (core.Money, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.defaultFee, nil
	}
	cents, err := core.ParseDecimalToCents(raw)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// errorFragment writes an htmx-friendly error div with the given status.
func errorFragment(w http.ResponseWriter, status int, msg string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`<div class="error">` + msg + `</div>`))
}
