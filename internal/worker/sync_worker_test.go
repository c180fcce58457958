package worker

import (
	"context"
	"errors"
	"testing"

	"stocktrack/internal/amqp"
	"stocktrack/internal/core"
	"stocktrack/internal/sheets/memory"
	"stocktrack/internal/storage"
)

func newTestStorage(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

// seedPendingCount records one count for alice on 2022-07-15 and returns its ID.
func seedPendingCount(t *testing.T, repo *storage.SQLiteRepository) int64 {
	t.Helper()
	ctx := context.Background()

	user, err := repo.GetOrCreateUser(ctx, "alice")
	if err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}
	period, err := core.NewPeriod(2022, 7)
	if err != nil {
		t.Fatalf("NewPeriod: %v", err)
	}
	month, err := repo.GetOrCreateMonth(ctx, user.ID, period)
	if err != nil {
		t.Fatalf("GetOrCreateMonth: %v", err)
	}
	if err := repo.CreateDays(ctx, month.ID, core.DayNumbers(2022, 7)); err != nil {
		t.Fatalf("CreateDays: %v", err)
	}
	day, err := repo.GetDay(ctx, month.ID, 15)
	if err != nil {
		t.Fatalf("GetDay: %v", err)
	}
	stock, err := repo.CreateStock(ctx, user.ID, "Shutterstock", "shutter")
	if err != nil {
		t.Fatalf("CreateStock: %v", err)
	}
	count, err := repo.AccumulateCount(ctx, stock.ID, day.ID, 4, 2, 6.5)
	if err != nil {
		t.Fatalf("AccumulateCount: %v", err)
	}
	if count.SyncStatus != core.SyncPending {
		t.Fatalf("seed count status = %q, want pending", count.SyncStatus)
	}
	return count.ID
}

func TestSyncWorker_HandleSyncMessage(t *testing.T) {
	repo := newTestStorage(t)
	archive := memory.New()
	w := NewSyncWorker(repo, archive, 10)
	ctx := context.Background()

	countID := seedPendingCount(t, repo)

	if err := w.HandleSyncMessage(ctx, amqp.NewEntrySyncMessage(countID)); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}

	entries := archive.Entries()
	if len(entries) != 1 {
		t.Fatalf("archived %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.User != "alice" || e.Stock != "Shutterstock" || e.Photo != 4 || e.Video != 2 || e.Income != 6.5 {
		t.Errorf("unexpected archived entry: %+v", e)
	}
	if got := e.Date.String(); got != "2022-07-15" {
		t.Errorf("Date = %q, want 2022-07-15", got)
	}

	pending, err := repo.ListPendingEntries(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingEntries: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("%d entries still pending after sync", len(pending))
	}
}

func TestSyncWorker_HandleSyncMessage_UnknownCount(t *testing.T) {
	repo := newTestStorage(t)
	w := NewSyncWorker(repo, memory.New(), 10)

	err := w.HandleSyncMessage(context.Background(), amqp.NewEntrySyncMessage(999))
	if err == nil {
		t.Fatal("expected an error for an unknown count")
	}
	if !errors.Is(err, core.ErrCountNotFound) {
		t.Errorf("error = %v, want ErrCountNotFound", err)
	}
}

func TestSyncWorker_ArchiveFailureMarksError(t *testing.T) {
	repo := newTestStorage(t)
	archive := memory.New()
	archive.Fail(errors.New("sheets unavailable"))
	w := NewSyncWorker(repo, archive, 10)
	ctx := context.Background()

	countID := seedPendingCount(t, repo)

	if err := w.HandleSyncMessage(ctx, amqp.NewEntrySyncMessage(countID)); err == nil {
		t.Fatal("expected an error when the archiver fails")
	}

	// The failed count should leave the pending queue.
	pending, err := repo.ListPendingEntries(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingEntries: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("count should be marked as errored, still pending: %v", pending)
	}
}

func TestSyncWorker_StartupSyncCheck(t *testing.T) {
	repo := newTestStorage(t)
	archive := memory.New()
	w := NewSyncWorker(repo, archive, 10)
	ctx := context.Background()

	seedPendingCount(t, repo)

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}
	if len(archive.Entries()) != 1 {
		t.Fatalf("archived %d entries, want 1", len(archive.Entries()))
	}

	pending, err := repo.ListPendingEntries(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingEntries: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("%d entries still pending after startup check", len(pending))
	}
}

func TestSyncWorker_ProcessPendingEntries_Empty(t *testing.T) {
	repo := newTestStorage(t)
	w := NewSyncWorker(repo, memory.New(), 10)

	if err := w.ProcessPendingEntries(context.Background()); err != nil {
		t.Fatalf("ProcessPendingEntries on empty storage: %v", err)
	}
}
