package minio_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainhub/brain-ingest/pkg/object-storage/minio"
	"github.com/brainhub/brain-ingest/pkg/testutils"
	"github.com/brainhub/brain-ingest/pkg/types"
	"github.com/brainhub/brain-ingest/pkg/utils"
)

func Test_MinioSaveFile(t *testing.T) {
	env := testutils.RequireEnv(t,
		"TEST_INGEST_MINIO_ENDPOINT",
		"TEST_INGEST_MINIO_BUCKET",
		"TEST_INGEST_MINIO_ACCESS_KEY",
		"TEST_INGEST_MINIO_SECRET_KEY",
	)
	cli, err := minio.NewMinioClient(env[0], "us-east-1", env[1], env[2], env[3], false)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	require.NoError(t, cli.EnsureBucket(ctx))

	brainID := "test-" + utils.GenRandomID()
	key := types.GenBrainFilePath(brainID, "a.md")
	require.NoError(t, cli.SaveFile(ctx, key, []byte("# title")))
	defer cli.DeleteFile(ctx, key)

	assert.ErrorIs(t, cli.SaveFile(ctx, key, []byte("# other")), types.ErrObjectAlreadyExists)

	files, err := cli.ListFiles(ctx, brainID+"/")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, key, files[0].Key)
	assert.Equal(t, int64(7), files[0].Size)
}
