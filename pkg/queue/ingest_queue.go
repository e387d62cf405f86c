package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/brainhub/brain-ingest/pkg/types"
)

const (
	// TaskTypeProcessFile 文件解析任务
	TaskTypeProcessFile = "process_file_task"

	IngestQueueName = "ingest"

	DefaultProcessFileMaxRetries  = 3
	DefaultProcessFileTaskTimeout = 30 * time.Minute
)

// IngestQueue publishes processing jobs for the worker.
type IngestQueue struct {
	client   *asynq.Client
	maxRetry int
	timeout  time.Duration
}

func NewIngestQueue(client *asynq.Client, maxRetry int, timeout time.Duration) *IngestQueue {
	if maxRetry < 0 {
		maxRetry = DefaultProcessFileMaxRetries
	}
	if timeout <= 0 {
		timeout = DefaultProcessFileTaskTimeout
	}
	return &IngestQueue{
		client:   client,
		maxRetry: maxRetry,
		timeout:  timeout,
	}
}

// NewProcessFileTask builds the asynq task carrying job. The task id is
// derived from the knowledge id so one knowledge row is queued at most once.
func NewProcessFileTask(job types.ProcessingJob, maxRetry int, timeout time.Duration) (*asynq.Task, error) {
	if job.KnowledgeID == "" {
		return nil, errors.New("processing job without knowledge id")
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}

	return asynq.NewTask(TaskTypeProcessFile, payload,
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(timeout),
		asynq.TaskID(ProcessFileTaskID(job.KnowledgeID)),
		asynq.Queue(IngestQueueName),
	), nil
}

func ProcessFileTaskID(knowledgeID string) string {
	return TaskTypeProcessFile + ":" + knowledgeID
}

// ParseProcessFileTask decodes the job carried by t.
func ParseProcessFileTask(t *asynq.Task) (types.ProcessingJob, error) {
	var job types.ProcessingJob
	if t.Type() != TaskTypeProcessFile {
		return job, fmt.Errorf("unexpected task type %s", t.Type())
	}
	if err := json.Unmarshal(t.Payload(), &job); err != nil {
		return job, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}
	return job, nil
}

// EnqueueProcessFile puts job on the ingest queue. Enqueueing a job whose
// knowledge id is already queued is a no-op.
func (q *IngestQueue) EnqueueProcessFile(ctx context.Context, job types.ProcessingJob) error {
	task, err := NewProcessFileTask(job, q.maxRetry, q.timeout)
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			slog.Warn("process file task already queued",
				slog.String("knowledge_id", job.KnowledgeID))
			return nil
		}
		return fmt.Errorf("failed to enqueue process file task: %w", err)
	}

	slog.Info("process file task enqueued",
		slog.String("task_id", info.ID),
		slog.String("brain_id", job.BrainID),
		slog.String("knowledge_id", job.KnowledgeID),
		slog.String("file_name", job.FileName))
	return nil
}

// Shutdown 优雅关闭队列资源
func (q *IngestQueue) Shutdown() {
	if q.client == nil {
		return
	}
	if err := q.client.Close(); err != nil {
		slog.Error("Failed to close ingest queue client", slog.String("error", err.Error()))
	}
}
