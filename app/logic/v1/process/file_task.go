package process

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/brainhub/brain-ingest/pkg/errors"
	"github.com/brainhub/brain-ingest/pkg/queue"
	"github.com/brainhub/brain-ingest/pkg/register"
	"github.com/brainhub/brain-ingest/pkg/types"
)

const (
	PROCESS_SUCCESS_DESCRIPTION = "Your file has been properly uploaded!"
	PROCESS_FAILED_DESCRIPTION  = "An error occurred while processing the file %s"
	PROCESS_SKIPPED_DESCRIPTION = "File %s was already processed."
)

func init() {
	register.RegisterFunc[*Process](ProcessKey{}, func(p *Process) {
		processor := NewFileProcessorFromCore(p.Core())
		p.AsynqServerMux().Handle(queue.TaskTypeProcessFile,
			NewProcessFileHandler(processor, p.Core().Store().NotificationStore()))
		slog.Info("process file task consumer registered")
	})
}

type NotificationUpdater interface {
	Update(ctx context.Context, id string, data types.NotificationUpdate) error
}

type JobRunner interface {
	Run(ctx context.Context, job types.ProcessingJob) (types.JobReport, error)
}

// ProcessFileHandler consumes process file tasks and reports the outcome on
// the job notification.
type ProcessFileHandler struct {
	runner        JobRunner
	notifications NotificationUpdater
	attempts      func(ctx context.Context) (retried, maxRetry int)
}

func NewProcessFileHandler(runner JobRunner, notifications NotificationUpdater) *ProcessFileHandler {
	return &ProcessFileHandler{
		runner:        runner,
		notifications: notifications,
		attempts:      taskAttempts,
	}
}

func taskAttempts(ctx context.Context) (int, int) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	return retried, maxRetry
}

func (h *ProcessFileHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	job, err := queue.ParseProcessFileTask(task)
	if err != nil {
		slog.Error("Failed to parse process file task", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	report, err := h.runner.Run(ctx, job)
	if err != nil {
		retried, maxRetry := h.attempts(ctx)
		if !IsProcessingFailure(err) {
			// 准入拒绝会被 asynq 重新调度，到最后一次仍被拒绝时先标记失败，之后成功会覆盖
			if retried >= maxRetry {
				h.notify(ctx, job, types.NOTIFICATION_STATUS_ERROR, fmt.Sprintf(PROCESS_FAILED_DESCRIPTION, job.FileOriginalName))
			}
			return err
		}

		// 解析类错误重试无意义
		permanent := errors.Is(err, errors.ErrUnsupportedFileType) || errors.Is(err, errors.ErrParseFailure)
		if permanent || retried >= maxRetry {
			h.notify(ctx, job, types.NOTIFICATION_STATUS_ERROR, fmt.Sprintf(PROCESS_FAILED_DESCRIPTION, job.FileOriginalName))
		}
		if permanent {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if report.Skipped {
		h.notify(ctx, job, types.NOTIFICATION_STATUS_SUCCESS, fmt.Sprintf(PROCESS_SKIPPED_DESCRIPTION, job.FileOriginalName))
		return nil
	}
	h.notify(ctx, job, types.NOTIFICATION_STATUS_SUCCESS, PROCESS_SUCCESS_DESCRIPTION)
	return nil
}

func (h *ProcessFileHandler) notify(ctx context.Context, job types.ProcessingJob, status types.NotificationStatus, description string) {
	if job.NotificationID == "" {
		return
	}
	if err := h.notifications.Update(context.WithoutCancel(ctx), job.NotificationID, types.NotificationUpdate{
		Status:      status,
		Description: description,
	}); err != nil {
		slog.Error("Failed to update job notification",
			slog.String("notification_id", job.NotificationID),
			slog.String("knowledge_id", job.KnowledgeID),
			slog.String("error", err.Error()))
	}
}
