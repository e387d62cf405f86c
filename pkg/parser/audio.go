package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/brainhub/brain-ingest/pkg/types"
)

// AudioExtensions are routed to the transcriber instead of the registry.
var AudioExtensions = map[string]bool{
	".m4a":  true,
	".mp3":  true,
	".webm": true,
	".mp4":  true,
	".mpga": true,
	".wav":  true,
	".mpeg": true,
}

func IsAudio(ext string) bool {
	return AudioExtensions[strings.ToLower(ext)]
}

// AudioTranscriber converts recorded speech into text.
type AudioTranscriber interface {
	Transcribe(ctx context.Context, fileName string, content []byte) (string, error)
}

// AudioParser transcribes audio and splits the transcript like plain text.
type AudioParser struct {
	transcriber AudioTranscriber
	opts        Options
}

func NewAudioParser(transcriber AudioTranscriber, opts Options) *AudioParser {
	return &AudioParser{
		transcriber: transcriber,
		opts:        opts.withDefaults(),
	}
}

// Process returns no chunks and no error when the transcript is empty.
func (p *AudioParser) Process(ctx context.Context, src Source) ([]types.ParsedChunk, error) {
	if p.transcriber == nil {
		return nil, fmt.Errorf("no audio transcriber configured")
	}

	name := src.OriginalFileName
	if name == "" {
		name = src.FileName
	}
	text, err := p.transcriber.Transcribe(ctx, name, src.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to transcribe audio: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		slog.Info("audio transcription is empty",
			slog.String("file_name", src.FileName),
			slog.String("knowledge_id", src.KnowledgeID))
		return nil, nil
	}

	docs, err := splitText(ctx, text, p.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to split transcript: %w", err)
	}
	return toChunks(docs, src, p.opts.TokenCounter), nil
}
