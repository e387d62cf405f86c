package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/pgvector/pgvector-go"

	"github.com/brainhub/brain-ingest/pkg/types"
)

const (
	DefaultBatchSize = 16
	DefaultPoolSize  = 4
)

var ErrEmbeddingMismatch = errors.New("embedding count does not match input")

// Embedder turns texts into vectors, one per text and in the same order.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Writer persists vector rows. It joins a transaction carried by ctx.
type Writer interface {
	BatchCreate(ctx context.Context, vectors []types.Vector) error
	CountByKnowledge(ctx context.Context, knowledgeID string) (int64, error)
}

// PGVectorStore embeds chunks and stores them as pgvector rows.
type PGVectorStore struct {
	embedder  Embedder
	writer    Writer
	pool      *ants.Pool
	batchSize int
}

type Option func(*PGVectorStore) error

// WithBatchSize sets how many chunks are sent in one embedding request.
func WithBatchSize(size int) Option {
	return func(s *PGVectorStore) error {
		if size > 0 {
			s.batchSize = size
		}
		return nil
	}
}

// WithPoolSize sets how many embedding requests run at once.
func WithPoolSize(size int) Option {
	return func(s *PGVectorStore) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

func NewPGVectorStore(embedder Embedder, writer Writer, opts ...Option) (*PGVectorStore, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if writer == nil {
		return nil, errors.New("vector writer is required")
	}

	s := &PGVectorStore{
		embedder:  embedder,
		writer:    writer,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Release()
			return nil, err
		}
	}
	if s.pool == nil {
		pool, err := ants.NewPool(DefaultPoolSize)
		if err != nil {
			return nil, err
		}
		s.pool = pool
	}
	return s, nil
}

// AddDocuments embeds chunks and writes one row per chunk. The returned ids
// follow the order of chunks.
func (s *PGVectorStore) AddDocuments(ctx context.Context, brainID, knowledgeID string, chunks []types.ParsedChunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	embeddings, err := s.embed(ctx, chunks)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	vectors := make([]types.Vector, 0, len(chunks))
	ids := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		meta, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal chunk metadata: %w", err)
		}
		id := uuid.NewString()
		vectors = append(vectors, types.Vector{
			ID:             id,
			KnowledgeID:    knowledgeID,
			BrainID:        brainID,
			Content:        chunk.Content,
			Metadata:       meta,
			Embedding:      pgvector.NewVector(embeddings[i]),
			OriginalLength: utf8.RuneCountInString(chunk.Content),
			CreatedAt:      now,
		})
		ids = append(ids, id)
	}

	if err = s.writer.BatchCreate(ctx, vectors); err != nil {
		return nil, fmt.Errorf("failed to write vectors: %w", err)
	}
	return ids, nil
}

func (s *PGVectorStore) CountByKnowledge(ctx context.Context, knowledgeID string) (int64, error) {
	return s.writer.CountByKnowledge(ctx, knowledgeID)
}

func (s *PGVectorStore) embed(ctx context.Context, chunks []types.ParsedChunk) ([][]float32, error) {
	var (
		result   = make([][]float32, len(chunks))
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}

		wg.Add(1)
		offset := start
		err := s.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			vecs, err := s.embedder.EmbedDocuments(ctx, texts)
			if err != nil {
				fail(fmt.Errorf("failed to embed batch at %d: %w", offset, err))
				return
			}
			if len(vecs) != len(texts) {
				fail(fmt.Errorf("batch at %d: %w, want %d got %d", offset, ErrEmbeddingMismatch, len(texts), len(vecs)))
				return
			}
			copy(result[offset:], vecs)
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("failed to submit embedding batch: %w", err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		slog.Error("embedding failed", slog.Int("chunks", len(chunks)), slog.String("error", firstErr.Error()))
		return nil, firstErr
	}
	return result, nil
}

// Release frees the embedding pool. The store must not be used afterwards.
func (s *PGVectorStore) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}
