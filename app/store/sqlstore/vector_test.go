package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainhub/brain-ingest/pkg/testutils"
	"github.com/brainhub/brain-ingest/pkg/types"
	"github.com/brainhub/brain-ingest/pkg/utils"
)

type PGConfig struct {
	DSN string `toml:"dsn"`
}

func (m PGConfig) FormatDSN() string {
	return m.DSN
}

func setupProvider(t *testing.T) *Provider {
	env := testutils.RequireEnv(t, "TEST_INGEST_POSTGRES_DSN")
	p := MustSetup(PGConfig{DSN: env[0]})()
	require.NoError(t, p.Install())
	return p
}

func TestIngestWritesInOneTransaction(t *testing.T) {
	p := setupProvider(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()

	brainID := utils.GenUniqIDStr()
	require.NoError(t, p.BrainStore().Create(ctx, types.Brain{ID: brainID, Name: "test", LastUpdate: 1}))

	knowledge := &types.Knowledge{BrainID: brainID, UserID: "u", FileName: "a.txt", MimeType: ".txt", FileSize: 3}
	require.NoError(t, p.KnowledgeStore().Create(ctx, knowledge))
	require.NotEmpty(t, knowledge.ID)

	vector := types.Vector{
		ID:          uuid.NewString(),
		KnowledgeID: knowledge.ID,
		BrainID:     brainID,
		Content:     "abc",
		Metadata:    []byte(`{"chunk_index":0}`),
		Embedding:   pgvector.NewVector([]float32{0.1, 0.2, 0.3}),
	}

	err := p.Transaction(ctx, func(ctx context.Context) error {
		if err := p.VectorStore().BatchCreate(ctx, []types.Vector{vector}); err != nil {
			return err
		}
		if err := p.BrainVectorStore().Create(ctx, vector.ID, "sha"); err != nil {
			return err
		}
		return p.BrainStore().UpdateLastUpdated(ctx, brainID)
	})
	require.NoError(t, err)

	count, err := p.VectorStore().CountByKnowledge(ctx, knowledge.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	links, err := p.BrainVectorStore().ListByFileSha1(ctx, "sha")
	require.NoError(t, err)
	assert.NotEmpty(t, links)

	brain, err := p.BrainStore().GetBrain(ctx, brainID)
	require.NoError(t, err)
	assert.Greater(t, brain.LastUpdate, int64(1))

	require.NoError(t, p.VectorStore().DeleteByKnowledge(ctx, knowledge.ID))
	require.NoError(t, p.BrainVectorStore().DeleteByVectorIDs(ctx, []string{vector.ID}))
	require.NoError(t, p.KnowledgeStore().Delete(ctx, brainID, knowledge.ID))

	_, err = p.KnowledgeStore().GetKnowledge(ctx, brainID, knowledge.ID)
	assert.True(t, IsNotFound(err))
}

func TestUserSettingsMissingRow(t *testing.T) {
	p := setupProvider(t)

	_, err := p.UserSettingsStore().Get(context.Background(), "missing-"+utils.GenRandomID())
	assert.True(t, IsNotFound(err))
}
