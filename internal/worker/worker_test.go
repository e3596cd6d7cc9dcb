package worker

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"lendit/internal/database"
	"lendit/internal/models"

	"github.com/rs/zerolog"
)

func TestProcessTaskSuccess(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{}
	w := NewSheetsWorker(db, sheets, nil, RetryPolicy{}, nil)

	booking := &models.Booking{
		ID:        1,
		ItemID:    10,
		BookerID:  2,
		OwnerID:   1,
		StartTime: time.Now(),
		EndTime:   time.Now().Add(time.Hour),
		Status:    models.StatusWaiting,
	}

	ctx := context.Background()
	if err := w.EnqueueTask(ctx, TaskUpsert, booking.ID, booking, ""); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := w.tryLocalQueue()
	if !ok {
		t.Fatalf("expected task in local queue")
	}
	w.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, db, task.ID)
	if status != database.SyncCompleted {
		t.Fatalf("expected status=completed, got %s", status)
	}
	if retryCount != 0 {
		t.Fatalf("expected retry_count=0, got %d", retryCount)
	}
	if nextRetry.Valid {
		t.Fatalf("expected next_retry_at NULL on success")
	}
	if sheets.upsertCalls != 1 {
		t.Fatalf("expected upsert call, got %d", sheets.upsertCalls)
	}
}

func TestProcessTaskRetry(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{err: errors.New("boom")}
	w := NewSheetsWorker(db, sheets, nil, RetryPolicy{MaxRetries: 3, InitialDelay: time.Second}, nil)

	booking := &models.Booking{ID: 2, ItemID: 10, BookerID: 2, OwnerID: 1, Status: models.StatusWaiting}

	ctx := context.Background()
	if err := w.EnqueueTask(ctx, TaskUpsert, booking.ID, booking, ""); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := w.tryLocalQueue()
	if !ok {
		t.Fatalf("expected task in local queue")
	}
	w.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, db, task.ID)
	if status != database.SyncRetry {
		t.Fatalf("expected status=retry, got %s", status)
	}
	if retryCount != 1 {
		t.Fatalf("expected retry_count=1, got %d", retryCount)
	}
	if !nextRetry.Valid || nextRetry.Time.Before(time.Now()) {
		t.Fatalf("expected next_retry_at in future, got %v", nextRetry)
	}
}

func TestProcessTaskFail(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{err: errors.New("fatal")}
	w := NewSheetsWorker(db, sheets, nil, RetryPolicy{MaxRetries: 1}, nil)

	booking := &models.Booking{ID: 3, ItemID: 10, BookerID: 2, OwnerID: 1, Status: models.StatusWaiting}

	ctx := context.Background()
	w.EnqueueTask(ctx, TaskUpsert, booking.ID, booking, "")
	task, _ := w.tryLocalQueue()
	w.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, db, task.ID)
	if status != database.SyncFailed {
		t.Fatalf("expected status=failed, got %s", status)
	}
}

func TestProcessTaskBadPayload(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{}
	w := NewSheetsWorker(db, sheets, nil, RetryPolicy{}, nil)

	ctx := context.Background()
	task := models.SyncTask{TaskType: TaskUpsert, BookingID: 4, Payload: "not json", Status: database.SyncPending}
	if err := db.CreateSyncTask(ctx, &task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	w.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, db, task.ID)
	if status != database.SyncFailed {
		t.Fatalf("expected status=failed for bad payload, got %s", status)
	}
	if sheets.upsertCalls != 0 {
		t.Fatalf("expected no sheet calls, got %d", sheets.upsertCalls)
	}
}

func TestSheetsWorker_ApplyTask(t *testing.T) {
	sheets := &fakeSheets{}
	w := NewSheetsWorker(nil, sheets, nil, RetryPolicy{}, nil)
	ctx := context.Background()

	t.Run("Upsert", func(t *testing.T) {
		booking := &models.Booking{ID: 1, ItemID: 2}
		if err := w.applyTask(ctx, TaskUpsert, taskPayload{Booking: booking}); err != nil {
			t.Fatalf("apply: %v", err)
		}
		if sheets.upsertCalls != 1 {
			t.Fatalf("expected 1 upsert call, got %d", sheets.upsertCalls)
		}
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		if err := w.applyTask(ctx, TaskUpdateStatus, taskPayload{BookingID: 123, Status: "approved"}); err != nil {
			t.Fatalf("apply: %v", err)
		}
		if sheets.statusCalls != 1 {
			t.Fatalf("expected 1 status call, got %d", sheets.statusCalls)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := w.applyTask(ctx, TaskDelete, taskPayload{BookingID: 123}); err != nil {
			t.Fatalf("apply: %v", err)
		}
		if sheets.deleteCalls != 1 {
			t.Fatalf("expected 1 delete call, got %d", sheets.deleteCalls)
		}
	})

	t.Run("UpsertWithoutBooking", func(t *testing.T) {
		if err := w.applyTask(ctx, TaskUpsert, taskPayload{BookingID: 1}); err == nil {
			t.Fatalf("expected error for missing booking payload")
		}
	})

	t.Run("UnknownType", func(t *testing.T) {
		if err := w.applyTask(ctx, "reindex", taskPayload{BookingID: 1}); err == nil {
			t.Fatalf("expected error for unknown task type")
		}
	})
}

func TestSheetsWorker_EnqueueTask(t *testing.T) {
	db := newTestDB(t)
	w := NewSheetsWorker(db, &fakeSheets{}, nil, RetryPolicy{}, nil)

	ctx := context.Background()
	booking := &models.Booking{ID: 1}

	t.Run("ValidTask", func(t *testing.T) {
		if err := w.EnqueueTask(ctx, TaskUpsert, 1, booking, ""); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	})

	t.Run("EmptyTaskType", func(t *testing.T) {
		if err := w.EnqueueTask(ctx, "", 1, booking, ""); err == nil {
			t.Fatalf("expected error for empty task type")
		}
	})

	t.Run("MissingBookingID", func(t *testing.T) {
		if err := w.EnqueueTask(ctx, TaskUpsert, 0, nil, ""); err == nil {
			t.Fatalf("expected error for missing booking id")
		}
	})

	t.Run("IDFromBooking", func(t *testing.T) {
		if err := w.EnqueueTask(ctx, TaskUpsert, 0, booking, ""); err != nil {
			t.Fatalf("enqueue with booking-carried id: %v", err)
		}
	})
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}
	d1 := policy.NextDelay(1)
	d2 := policy.NextDelay(2)
	d3 := policy.NextDelay(5)

	if d1 != time.Second {
		t.Fatalf("attempt1 expected 1s, got %s", d1)
	}
	if d2 != 2*time.Second {
		t.Fatalf("attempt2 expected 2s, got %s", d2)
	}
	if d3 != 5*time.Second {
		t.Fatalf("attempt5 expected capped 5s, got %s", d3)
	}
}

// Helpers

type fakeSheets struct {
	err         error
	upsertCalls int
	deleteCalls int
	statusCalls int
}

func (f *fakeSheets) UpsertBooking(ctx context.Context, b *models.Booking) error {
	f.upsertCalls++
	return f.err
}

func (f *fakeSheets) UpdateBookingStatus(ctx context.Context, id int64, status string) error {
	f.statusCalls++
	return f.err
}

func (f *fakeSheets) DeleteBookingRow(ctx context.Context, id int64) error {
	f.deleteCalls++
	return f.err
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	db, err := database.NewDB(":memory:", &logger)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func loadTaskStatus(t *testing.T, db *database.DB, id int64) (status string, retryCount int, nextRetry sql.NullTime) {
	t.Helper()
	row := db.QueryRowContext(context.Background(), `SELECT status, retry_count, next_retry_at FROM sync_queue WHERE id = ?`, id)
	if err := row.Scan(&status, &retryCount, &nextRetry); err != nil {
		t.Fatalf("scan task: %v", err)
	}
	return status, retryCount, nextRetry
}
