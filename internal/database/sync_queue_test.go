package database

import (
	"context"
	"testing"
	"time"

	"lendit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncQueueLifecycle(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	task := &models.SyncTask{
		TaskType:  "upsert",
		BookingID: 1,
		Payload:   `{"booking_id":1}`,
		Status:    SyncPending,
	}
	require.NoError(t, db.CreateSyncTask(ctx, task))
	assert.NotZero(t, task.ID)

	pending, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "upsert", pending[0].TaskType)

	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, SyncCompleted, "", nil))

	pending, err = db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSyncQueueRetryScheduling(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	task := &models.SyncTask{TaskType: "update_status", BookingID: 2, Payload: `{}`, Status: SyncPending}
	require.NoError(t, db.CreateSyncTask(ctx, task))

	// A retry scheduled in the future must not surface yet.
	future := time.Now().Add(time.Hour)
	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, SyncRetry, "sheets unavailable", &future))

	pending, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Once the retry time has passed, the task reappears with its retry count bumped.
	past := time.Now().Add(-time.Minute)
	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, SyncRetry, "sheets unavailable", &past))

	pending, err = db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].RetryCount)
	require.NotNil(t, pending[0].LastError)
	assert.Equal(t, "sheets unavailable", *pending[0].LastError)
}
