package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainhub/brain-ingest/pkg/types"
)

// indexEmbedder returns the numeric content of every text as its vector, so
// ordering can be checked after concurrent batches.
type indexEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  bool
	short bool
}

func (e *indexEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.fail {
		return nil, errors.New("rate limited")
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		n, _ := strconv.Atoi(t)
		out = append(out, []float32{float32(n)})
	}
	if e.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

type memWriter struct {
	rows []types.Vector
	err  error
}

func (w *memWriter) BatchCreate(ctx context.Context, vectors []types.Vector) error {
	if w.err != nil {
		return w.err
	}
	w.rows = append(w.rows, vectors...)
	return nil
}

func (w *memWriter) CountByKnowledge(ctx context.Context, knowledgeID string) (int64, error) {
	var n int64
	for _, r := range w.rows {
		if r.KnowledgeID == knowledgeID {
			n++
		}
	}
	return n, nil
}

func numberedChunks(n int) []types.ParsedChunk {
	chunks := make([]types.ParsedChunk, 0, n)
	for i := 0; i < n; i++ {
		chunks = append(chunks, types.ParsedChunk{
			Content:  fmt.Sprint(i),
			Metadata: map[string]any{types.CHUNK_META_CHUNK_INDEX: i},
		})
	}
	return chunks
}

func TestAddDocumentsKeepsOrder(t *testing.T) {
	embedder := &indexEmbedder{}
	writer := &memWriter{}
	s, err := NewPGVectorStore(embedder, writer, WithBatchSize(3), WithPoolSize(4))
	require.NoError(t, err)
	defer s.Release()

	ids, err := s.AddDocuments(context.Background(), "b", "k", numberedChunks(10))
	require.NoError(t, err)
	require.Len(t, ids, 10)
	require.Len(t, writer.rows, 10)
	assert.Equal(t, 4, embedder.calls)

	for i, row := range writer.rows {
		assert.Equal(t, ids[i], row.ID)
		assert.Equal(t, float32(i), row.Embedding.Slice()[0])
		assert.Equal(t, "k", row.KnowledgeID)
		assert.Equal(t, "b", row.BrainID)
	}

	count, err := s.CountByKnowledge(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, int64(10), count)
}

func TestAddDocumentsEmpty(t *testing.T) {
	s, err := NewPGVectorStore(&indexEmbedder{}, &memWriter{})
	require.NoError(t, err)
	defer s.Release()

	ids, err := s.AddDocuments(context.Background(), "b", "k", nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAddDocumentsEmbeddingFailure(t *testing.T) {
	writer := &memWriter{}
	s, err := NewPGVectorStore(&indexEmbedder{fail: true}, writer, WithBatchSize(2))
	require.NoError(t, err)
	defer s.Release()

	_, err = s.AddDocuments(context.Background(), "b", "k", numberedChunks(5))
	assert.Error(t, err)
	assert.Empty(t, writer.rows)
}

func TestAddDocumentsEmbeddingMismatch(t *testing.T) {
	s, err := NewPGVectorStore(&indexEmbedder{short: true}, &memWriter{})
	require.NoError(t, err)
	defer s.Release()

	_, err = s.AddDocuments(context.Background(), "b", "k", numberedChunks(3))
	assert.ErrorIs(t, err, ErrEmbeddingMismatch)
}

func TestAddDocumentsWriteFailure(t *testing.T) {
	s, err := NewPGVectorStore(&indexEmbedder{}, &memWriter{err: errors.New("db down")})
	require.NoError(t, err)
	defer s.Release()

	ids, err := s.AddDocuments(context.Background(), "b", "k", numberedChunks(2))
	assert.Error(t, err)
	assert.Nil(t, ids)
}
