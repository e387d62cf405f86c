package process

import (
	"context"
	"log/slog"
	"time"

	"github.com/brainhub/brain-ingest/pkg/register"
	"github.com/brainhub/brain-ingest/pkg/safe"
	"github.com/brainhub/brain-ingest/pkg/types"
)

func init() {
	register.RegisterFunc[*Process](ProcessKey{}, func(p *Process) {
		task := NewNotificationCleanupTask(p.Core().Store().NotificationStore(), p.Core().Cfg().Ingest.NotificationRetentionDays)
		// 每天凌晨3点清理
		if _, err := p.Cron().AddFunc("0 3 * * *", func() {
			safe.RunWithLog(func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute*5)
				defer cancel()
				if err := task.Run(ctx); err != nil {
					slog.Error("Notification cleanup task failed", slog.String("error", err.Error()))
				}
			}, "process.notification_cleanup")
		}); err != nil {
			slog.Error("Failed to schedule notification cleanup", slog.String("error", err.Error()))
		}
	})
}

type NotificationDeleter interface {
	DeleteBefore(ctx context.Context, ts int64, statuses []types.NotificationStatus) (int64, error)
}

// NotificationCleanupTask 清理已结束的上传通知
type NotificationCleanupTask struct {
	store     NotificationDeleter
	retention time.Duration
	now       func() time.Time
}

func NewNotificationCleanupTask(store NotificationDeleter, retentionDays int) *NotificationCleanupTask {
	if retentionDays <= 0 {
		retentionDays = 7
	}
	return &NotificationCleanupTask{
		store:     store,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		now:       time.Now,
	}
}

// Run deletes finished notifications last updated before the retention window.
// INFO notifications belong to jobs that may still be running and are kept.
func (t *NotificationCleanupTask) Run(ctx context.Context) error {
	before := t.now().Add(-t.retention).Unix()
	deleted, err := t.store.DeleteBefore(ctx, before, []types.NotificationStatus{
		types.NOTIFICATION_STATUS_SUCCESS,
		types.NOTIFICATION_STATUS_WARNING,
		types.NOTIFICATION_STATUS_ERROR,
	})
	if err != nil {
		return err
	}
	slog.Info("Notification cleanup finished", slog.Int64("deleted", deleted), slog.Int64("before", before))
	return nil
}
