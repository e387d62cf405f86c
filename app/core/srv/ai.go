package srv

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/sashabaranov/go-openai"

	"github.com/brainhub/brain-ingest/pkg/errors"
	"github.com/brainhub/brain-ingest/pkg/i18n"
)

const (
	DEFAULT_EMBEDDING_MODEL     = string(openai.SmallEmbedding3)
	DEFAULT_TRANSCRIPTION_MODEL = openai.Whisper1
)

type AIConfig struct {
	BaseURL            string `toml:"base_url"`
	Token              string `toml:"token"`
	EmbeddingModel     string `toml:"embedding_model"`
	EmbeddingDimension int    `toml:"embedding_dimension"`
	TranscriptionModel string `toml:"transcription_model"`
}

func (c AIConfig) withDefaults() AIConfig {
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = DEFAULT_EMBEDDING_MODEL
	}
	if c.TranscriptionModel == "" {
		c.TranscriptionModel = DEFAULT_TRANSCRIPTION_MODEL
	}
	return c
}

// AI wraps an OpenAI compatible endpoint for embedding and transcription.
type AI struct {
	cfg    AIConfig
	client *openai.Client
}

func SetupAI(cfg AIConfig) *AI {
	cfg = cfg.withDefaults()
	conf := openai.DefaultConfig(cfg.Token)
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	return &AI{
		cfg:    cfg,
		client: openai.NewClientWithConfig(conf),
	}
}

func (s *AI) Config() AIConfig {
	return s.cfg
}

// EmbedDocuments returns one embedding per input, in input order.
func (s *AI) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input: docs,
		Model: openai.EmbeddingModel(s.cfg.EmbeddingModel),
	}
	if s.cfg.EmbeddingDimension > 0 {
		req.Dimensions = s.cfg.EmbeddingDimension
	}

	resp, err := s.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, errors.New("AI.EmbedDocuments", i18n.ERROR_INTERNAL, fmt.Errorf("create embeddings: %w", err))
	}

	sort.Slice(resp.Data, func(i, j int) bool {
		return resp.Data[i].Index < resp.Data[j].Index
	})

	result := make([][]float32, 0, len(resp.Data))
	for _, v := range resp.Data {
		result = append(result, v.Embedding)
	}

	slog.Debug("embedding finished", slog.String("model", s.cfg.EmbeddingModel),
		slog.Int("documents", len(docs)), slog.Int("total_tokens", resp.Usage.TotalTokens))
	return result, nil
}

// Transcribe converts an audio file into plain text.
func (s *AI) Transcribe(ctx context.Context, fileName string, content []byte) (string, error) {
	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.cfg.TranscriptionModel,
		FilePath: fileName,
		Reader:   bytes.NewReader(content),
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", errors.New("AI.Transcribe", i18n.ERROR_INTERNAL, fmt.Errorf("create transcription: %w", err))
	}
	return resp.Text, nil
}
