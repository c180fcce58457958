package worker

import (
	"context"
	"fmt"
	"log/slog"

	"stocktrack/internal/amqp"
	"stocktrack/internal/core"
	"stocktrack/internal/sheets"
	"stocktrack/internal/storage"
)

// SyncWorker archives recorded stock counts from SQLite to the external
// spreadsheet and tracks their sync status.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	archiver  sheets.EntryArchiver
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, archiver sheets.EntryArchiver, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		archiver:  archiver,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single entry sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.EntrySyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "count_id", msg.CountID)

	entry, err := w.storage.GetEntry(ctx, msg.CountID)
	if err != nil {
		return fmt.Errorf("get entry from storage: %w", err)
	}

	if err := w.archiveEntry(ctx, entry); err != nil {
		return fmt.Errorf("archive entry: %w", err)
	}

	return nil
}

// ProcessPendingEntries archives counts that haven't been synced yet.
// This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingEntries(ctx context.Context) error {
	pending, err := w.storage.ListPendingEntries(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending entries: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending entries", "count", len(pending))

	for _, entry := range pending {
		if err := w.archiveEntry(ctx, entry); err != nil {
			slog.ErrorContext(ctx, "Failed to archive entry", "count_id", entry.CountID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck drains pending counts at worker startup. This recovers
// from missed AMQP messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.ListPendingEntries(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending entries for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending entries found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending entries on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, entry := range pending {
		if err := w.archiveEntry(ctx, entry); err != nil {
			slog.ErrorContext(ctx, "Failed to archive entry during startup",
				"count_id", entry.CountID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *SyncWorker) archiveEntry(ctx context.Context, entry core.Entry) error {
	ref, err := w.archiver.Append(ctx, entry)
	if err != nil {
		if markErr := w.storage.MarkCountSyncError(ctx, entry.CountID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "count_id", entry.CountID, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.storage.MarkCountSynced(ctx, entry.CountID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "count_id", entry.CountID, "error", err)
		// The append actually worked, so don't fail the message.
	}

	slog.InfoContext(ctx, "Successfully archived entry",
		"count_id", entry.CountID,
		"sheets_ref", ref,
		"stock_name", entry.Stock,
		"date", entry.Date.String())

	return nil
}
