package queue

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainhub/brain-ingest/pkg/testutils"
	"github.com/brainhub/brain-ingest/pkg/types"
	"github.com/brainhub/brain-ingest/pkg/utils"
)

func testJob() types.ProcessingJob {
	return types.ProcessingJob{
		BrainID:          "brain-1",
		KnowledgeID:      utils.GenUniqIDStr(),
		FileName:         types.GenBrainFilePath("brain-1", "notes.md"),
		FileOriginalName: "notes.md",
		Integration:      "",
		NotificationID:   "n-1",
	}
}

func TestProcessFileTaskRoundTrip(t *testing.T) {
	job := testJob()

	task, err := NewProcessFileTask(job, DefaultProcessFileMaxRetries, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeProcessFile, task.Type())

	got, err := ParseProcessFileTask(task)
	require.NoError(t, err)
	assert.Equal(t, job, got)
}

func TestProcessFileTaskRequiresKnowledge(t *testing.T) {
	job := testJob()
	job.KnowledgeID = ""
	_, err := NewProcessFileTask(job, 1, time.Minute)
	assert.Error(t, err)
}

func TestParseProcessFileTaskWrongType(t *testing.T) {
	_, err := ParseProcessFileTask(asynq.NewTask("other", []byte("{}")))
	assert.Error(t, err)
}

func TestIngestQueue_EnqueueProcessFile(t *testing.T) {
	env := testutils.RequireEnv(t, "TEST_INGEST_REDIS_ADDR")

	redisClient := redis.NewClient(&redis.Options{Addr: env[0], DB: 1})
	defer redisClient.Close()

	ctx := context.Background()
	require.NoError(t, redisClient.FlushDB(ctx).Err())

	client := asynq.NewClientFromRedisClient(redisClient)
	q := NewIngestQueue(client, DefaultProcessFileMaxRetries, time.Minute)

	job := testJob()
	require.NoError(t, q.EnqueueProcessFile(ctx, job))
	// the same knowledge is not queued twice
	require.NoError(t, q.EnqueueProcessFile(ctx, job))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: env[0], DB: 1})
	defer inspector.Close()
	queueInfo, err := inspector.GetQueueInfo(IngestQueueName)
	require.NoError(t, err)
	assert.Equal(t, 1, queueInfo.Pending)

	taskInfo, err := inspector.GetTaskInfo(IngestQueueName, ProcessFileTaskID(job.KnowledgeID))
	require.NoError(t, err)
	assert.Equal(t, DefaultProcessFileMaxRetries, taskInfo.MaxRetry)
}
