package process

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainhub/brain-ingest/pkg/errors"
	"github.com/brainhub/brain-ingest/pkg/i18n"
	"github.com/brainhub/brain-ingest/pkg/queue"
	"github.com/brainhub/brain-ingest/pkg/types"
)

type fakeRunner struct {
	report types.JobReport
	err    error
	jobs   []types.ProcessingJob
}

func (f *fakeRunner) Run(ctx context.Context, job types.ProcessingJob) (types.JobReport, error) {
	f.jobs = append(f.jobs, job)
	return f.report, f.err
}

type fakeNotificationUpdater struct {
	updates map[string]types.NotificationUpdate
}

func (f *fakeNotificationUpdater) Update(ctx context.Context, id string, data types.NotificationUpdate) error {
	f.updates[id] = data
	return nil
}

func newProcessFileTask(t *testing.T) (*asynq.Task, types.ProcessingJob) {
	job := types.ProcessingJob{
		BrainID:          "B1",
		KnowledgeID:      "k1",
		FileName:         "B1/notes.txt",
		FileOriginalName: "notes.txt",
		NotificationID:   "n1",
	}
	task, err := queue.NewProcessFileTask(job, 3, queue.DefaultProcessFileTaskTimeout)
	require.NoError(t, err)
	return task, job
}

func TestProcessFileHandlerSuccess(t *testing.T) {
	runner := &fakeRunner{report: types.JobReport{State: types.JOB_STATE_COMPLETED, Chunks: 2}}
	notifications := &fakeNotificationUpdater{updates: map[string]types.NotificationUpdate{}}
	task, job := newProcessFileTask(t)

	err := NewProcessFileHandler(runner, notifications).ProcessTask(context.Background(), task)
	require.NoError(t, err)

	require.Len(t, runner.jobs, 1)
	assert.Equal(t, job, runner.jobs[0])
	assert.Equal(t, types.NOTIFICATION_STATUS_SUCCESS, notifications.updates["n1"].Status)
}

func TestProcessFileHandlerUnsupportedSkipsRetry(t *testing.T) {
	runner := &fakeRunner{err: errors.New("test", i18n.ERROR_UNSUPPORTED_FILE_TYPE,
		fmt.Errorf("%w: .xyz", errors.ErrUnsupportedFileType)).Code(http.StatusUnprocessableEntity)}
	notifications := &fakeNotificationUpdater{updates: map[string]types.NotificationUpdate{}}
	task, _ := newProcessFileTask(t)

	err := NewProcessFileHandler(runner, notifications).ProcessTask(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedFileType))
	assert.Equal(t, types.NOTIFICATION_STATUS_ERROR, notifications.updates["n1"].Status)
	assert.Equal(t, "An error occurred while processing the file notes.txt", notifications.updates["n1"].Description)
}

func TestProcessFileHandlerAdmissionRejectedBeforeLastAttempt(t *testing.T) {
	for name, cause := range map[string]error{
		"in flight": ErrJobInFlight,
		"busy":      ErrProcessingBusy,
	} {
		t.Run(name, func(t *testing.T) {
			runner := &fakeRunner{err: errors.New("test", i18n.ERROR_TOO_MANY_REQUESTS, cause).Code(http.StatusTooManyRequests)}
			notifications := &fakeNotificationUpdater{updates: map[string]types.NotificationUpdate{}}
			task, _ := newProcessFileTask(t)

			h := NewProcessFileHandler(runner, notifications)
			h.attempts = func(ctx context.Context) (int, int) { return 1, 3 }

			err := h.ProcessTask(context.Background(), task)
			require.Error(t, err)
			assert.ErrorIs(t, err, cause)
			assert.NotErrorIs(t, err, asynq.SkipRetry)
			assert.False(t, IsProcessingFailure(err))
			assert.Empty(t, notifications.updates)
		})
	}
}

func TestProcessFileHandlerBusyOnLastAttemptReportsError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("test", i18n.ERROR_TOO_MANY_REQUESTS,
		fmt.Errorf("semaphore full: %w", ErrProcessingBusy)).Code(http.StatusTooManyRequests)}
	notifications := &fakeNotificationUpdater{updates: map[string]types.NotificationUpdate{}}
	task, _ := newProcessFileTask(t)

	// context.Background() carries no retry metadata, asynq treats it as the last attempt
	err := NewProcessFileHandler(runner, notifications).ProcessTask(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProcessingBusy)
	assert.Equal(t, types.NOTIFICATION_STATUS_ERROR, notifications.updates["n1"].Status)
	assert.Equal(t, "An error occurred while processing the file notes.txt", notifications.updates["n1"].Description)
}

func TestIsProcessingFailure(t *testing.T) {
	assert.False(t, IsProcessingFailure(ErrJobInFlight))
	assert.False(t, IsProcessingFailure(errors.New("test", i18n.ERROR_TOO_MANY_REQUESTS, ErrProcessingBusy)))
	assert.True(t, IsProcessingFailure(errors.New("test", i18n.ERROR_VECTOR_WRITE_FAILED, errors.ErrVectorWriteFailure)))
	assert.True(t, IsProcessingFailure(fmt.Errorf("boom")))
}

func TestProcessFileHandlerRejectsBadPayload(t *testing.T) {
	runner := &fakeRunner{}
	notifications := &fakeNotificationUpdater{updates: map[string]types.NotificationUpdate{}}
	raw, _ := json.Marshal("not a job")
	task := asynq.NewTask(queue.TaskTypeProcessFile, raw)

	err := NewProcessFileHandler(runner, notifications).ProcessTask(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, runner.jobs)
}
