package process

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainhub/brain-ingest/pkg/types"
)

type fakeNotificationDeleter struct {
	ts       int64
	statuses []types.NotificationStatus
}

func (f *fakeNotificationDeleter) DeleteBefore(ctx context.Context, ts int64, statuses []types.NotificationStatus) (int64, error) {
	f.ts = ts
	f.statuses = statuses
	return 4, nil
}

func TestNotificationCleanupTask(t *testing.T) {
	store := &fakeNotificationDeleter{}
	task := NewNotificationCleanupTask(store, 2)
	now := time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)
	task.now = func() time.Time { return now }

	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, now.Add(-48*time.Hour).Unix(), store.ts)
	assert.NotContains(t, store.statuses, types.NOTIFICATION_STATUS_INFO)
	assert.Contains(t, store.statuses, types.NOTIFICATION_STATUS_ERROR)
	assert.Contains(t, store.statuses, types.NOTIFICATION_STATUS_SUCCESS)
}
