// Package log sets up the process-wide slog logger and names the field
// and component keys shared across packages.
package log

import (
	"log/slog"
	"os"
)

// Setup installs a text handler on stdout as the default logger and
// returns it. LOG_LEVEL selects the level ("debug", "warn", "error",
// anything else means info).
func Setup() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldGroupID    = "group_id"
	FieldStudentID  = "student_id"
	FieldMonth      = "month"
	FieldRevision   = "revision"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentAI      = "ai"
)
