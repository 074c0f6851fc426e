// Package worker consumes ledger sync messages and mirrors the current
// snapshot to timestamped JSON exports on disk.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bakano/internal/amqp"
	"bakano/internal/snapshot"
)

// SnapshotLoader is the slice of the storage repository the worker
// needs.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context) (document []byte, ok bool, err error)
}

// BackupWorker exports the persisted snapshot whenever the server
// announces a new revision. Each export is written twice: a timestamped
// history file and a stable "ledger-latest.json" that external tooling
// can watch.
type BackupWorker struct {
	storage SnapshotLoader
	dir     string
}

func NewBackupWorker(storage SnapshotLoader, dir string) *BackupWorker {
	return &BackupWorker{storage: storage, dir: dir}
}

// HandleSyncMessage processes a single ledger sync message from AMQP.
// Returning an error requeues the message.
func (w *BackupWorker) HandleSyncMessage(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	slog.InfoContext(ctx, "Processing ledger sync message", "revision", msg.Revision)

	data, ok, err := w.storage.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		// The revision was announced before the first save landed, or
		// the database was reset. Nothing to export.
		slog.WarnContext(ctx, "No snapshot found for announced revision", "revision", msg.Revision)
		return nil
	}

	// Validate before writing so a corrupt snapshot never overwrites a
	// good export.
	if _, err := snapshot.FromJSON(data); err != nil {
		return fmt.Errorf("snapshot for revision %d is corrupt: %w", msg.Revision, err)
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("ledger-%s-rev%d.json", msg.Timestamp.UTC().Format("20060102T150405"), msg.Revision)
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write backup %s: %w", name, err)
	}

	latest := filepath.Join(w.dir, "ledger-latest.json")
	if err := os.WriteFile(latest, data, 0o644); err != nil {
		return fmt.Errorf("write latest export: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot exported", "revision", msg.Revision, "file", name)
	return nil
}
