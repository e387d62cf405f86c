package parser

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/schema"

	"github.com/brainhub/brain-ingest/pkg/types"
	"github.com/brainhub/brain-ingest/pkg/utils"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
)

// Source is one downloaded file handed to a parser.
type Source struct {
	Content          []byte
	FileName         string // storage path
	OriginalFileName string
	FileSha1         string
	BrainID          string
	KnowledgeID      string
	Integration      string
	IntegrationLink  string
}

// Parser turns the bytes of one file type into ordered chunks.
type Parser interface {
	Process(ctx context.Context, src Source) ([]types.ParsedChunk, error)
}

type ParserFunc func(ctx context.Context, src Source) ([]types.ParsedChunk, error)

func (f ParserFunc) Process(ctx context.Context, src Source) ([]types.ParsedChunk, error) {
	return f(ctx, src)
}

type Options struct {
	ChunkSize    int
	ChunkOverlap int
	TokenCounter TokenCounter
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		o.ChunkOverlap = DefaultChunkOverlap
		if o.ChunkOverlap >= o.ChunkSize {
			o.ChunkOverlap = o.ChunkSize / 5
		}
	}
	if o.TokenCounter == nil {
		o.TokenCounter = NewTiktokenCounter(DefaultTokenEncoding)
	}
	return o
}

// toChunks drops blank documents and attaches the file level metadata to the
// rest, in order.
func toChunks(docs []schema.Document, src Source, countTokens TokenCounter) []types.ParsedChunk {
	chunks := make([]types.ParsedChunk, 0, len(docs))
	for _, doc := range docs {
		content := strings.TrimSpace(doc.PageContent)
		if content == "" {
			continue
		}

		meta := make(map[string]any, len(doc.Metadata)+11)
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		meta[types.CHUNK_META_FILE_NAME] = src.FileName
		meta[types.CHUNK_META_ORIGINAL_FILE_NAME] = src.OriginalFileName
		meta[types.CHUNK_META_FILE_SHA1] = src.FileSha1
		meta[types.CHUNK_META_BRAIN_ID] = src.BrainID
		meta[types.CHUNK_META_KNOWLEDGE_ID] = src.KnowledgeID
		meta[types.CHUNK_META_INTEGRATION] = src.Integration
		meta[types.CHUNK_META_INTEGRATION_LINK] = src.IntegrationLink
		meta[types.CHUNK_META_CHUNK_INDEX] = len(chunks)
		meta[types.CHUNK_META_CHUNK_SIZE] = utf8.RuneCountInString(content)
		meta[types.CHUNK_META_TOKENS] = countTokens(content)
		meta[types.CHUNK_META_LANGUAGE] = utils.WhatLang(content)

		chunks = append(chunks, types.ParsedChunk{
			Content:  content,
			Metadata: meta,
		})
	}
	return chunks
}
