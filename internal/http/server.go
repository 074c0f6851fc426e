// Package http serves the browser UI and the form endpoints that drive
// ledger mutations, document extraction and report generation.
package http

import (
	"context"
	"encoding/json"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"bakano/internal/ai"
	"bakano/internal/config"
	"bakano/internal/core"
	applog "bakano/internal/log"
	"bakano/internal/services"
	appweb "bakano/web"
)

type Server struct {
	http.Server
	templates *template.Template
	ledger    *services.LedgerService

	nameExtractor   ai.NameExtractor
	reportExtractor ai.ReportExtractor
	absenceReporter ai.AbsenceReporter

	warnLimit          int
	defaultFee         core.Money
	defaultSessionDays []time.Weekday

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server. The AI adapters may be nil; the matching endpoints then
// answer 503.
func NewServer(addr string, ledger *services.LedgerService, cfg *config.Config,
	names ai.NameExtractor, reports ai.ReportExtractor, absences ai.AbsenceReporter) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		ledger:             ledger,
		nameExtractor:      names,
		reportExtractor:    reports,
		absenceReporter:    absences,
		warnLimit:          cfg.AbsenceWarnLimit,
		defaultFee:         cfg.DefaultMonthlyFee,
		defaultSessionDays: cfg.DefaultSessionDays,
		rateLimiter:        newRateLimiter(),
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	// UI partials
	mux.HandleFunc("GET /ui/roster", s.withSecurityHeaders(s.handleRoster))

	// Mutations
	mux.HandleFunc("POST /groups", s.withSecurityHeaders(s.handleCreateGroup))
	mux.HandleFunc("POST /groups/{id}", s.withSecurityHeaders(s.handleUpdateGroup))
	mux.HandleFunc("POST /groups/{id}/delete", s.withSecurityHeaders(s.handleDeleteGroup))
	mux.HandleFunc("POST /students", s.withSecurityHeaders(s.handleAddStudent))
	mux.HandleFunc("POST /students/{id}/rename", s.withSecurityHeaders(s.handleRenameStudent))
	mux.HandleFunc("POST /students/{id}/delete", s.withSecurityHeaders(s.handleDeleteStudent))
	mux.HandleFunc("POST /students/{id}/attendance", s.withSecurityHeaders(s.handleToggleAttendance))
	mux.HandleFunc("POST /students/{id}/payment", s.withSecurityHeaders(s.handleTogglePayment))

	// Documents and reports
	mux.HandleFunc("POST /extract", s.withSecurityHeaders(s.handleExtract))
	mux.HandleFunc("POST /reports/absence", s.withSecurityHeaders(s.handleAbsenceReport))
	mux.HandleFunc("GET /reports/monthly.pdf", s.withSecurityHeaders(s.handleMonthlyPDF))

	return s
}

// withSecurityHeaders adds security headers, rate limiting and request
// logging.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP, applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds())
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{
		"templates": "ok",
		"ledger":    "ok",
	}
	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}
	if s.ledger == nil {
		checks["ledger"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// Shutdown stops the rate limiter cleanup goroutine before shutting
// down the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
