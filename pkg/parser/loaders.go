package parser

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/brainhub/brain-ingest/pkg/types"
)

// loaderParser loads a file with a langchaingo loader and splits the result.
type loaderParser struct {
	name     string
	opts     Options
	load     func(src Source) documentloaders.Loader
	splitter textsplitter.TextSplitter
}

func (p *loaderParser) Process(ctx context.Context, src Source) ([]types.ParsedChunk, error) {
	if len(bytes.TrimSpace(src.Content)) == 0 {
		return nil, nil
	}

	docs, err := p.load(src).LoadAndSplit(ctx, p.splitter)
	if err != nil {
		return nil, fmt.Errorf("%s loader: %w", p.name, err)
	}
	return toChunks(docs, src, p.opts.TokenCounter), nil
}

func newRecursiveSplitter(opts Options) textsplitter.TextSplitter {
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(opts.ChunkSize),
		textsplitter.WithChunkOverlap(opts.ChunkOverlap),
	)
}

// NewTextParser splits plain text on paragraph, line and word boundaries.
func NewTextParser(opts Options) Parser {
	opts = opts.withDefaults()
	return &loaderParser{
		name: "text",
		opts: opts,
		load: func(src Source) documentloaders.Loader {
			return documentloaders.NewText(bytes.NewReader(src.Content))
		},
		splitter: newRecursiveSplitter(opts),
	}
}

// NewMarkdownParser keeps headings attached to the sections they introduce.
func NewMarkdownParser(opts Options) Parser {
	opts = opts.withDefaults()
	return &loaderParser{
		name: "markdown",
		opts: opts,
		load: func(src Source) documentloaders.Loader {
			return documentloaders.NewText(bytes.NewReader(src.Content))
		},
		splitter: textsplitter.NewMarkdownTextSplitter(
			textsplitter.WithChunkSize(opts.ChunkSize),
			textsplitter.WithChunkOverlap(opts.ChunkOverlap),
		),
	}
}

// NewHTMLParser extracts the visible text of an html document.
func NewHTMLParser(opts Options) Parser {
	opts = opts.withDefaults()
	return &loaderParser{
		name: "html",
		opts: opts,
		load: func(src Source) documentloaders.Loader {
			return documentloaders.NewHTML(bytes.NewReader(src.Content))
		},
		splitter: newRecursiveSplitter(opts),
	}
}

// NewCSVParser emits one document per row before splitting.
func NewCSVParser(opts Options) Parser {
	opts = opts.withDefaults()
	return &loaderParser{
		name: "csv",
		opts: opts,
		load: func(src Source) documentloaders.Loader {
			return documentloaders.NewCSV(bytes.NewReader(src.Content))
		},
		splitter: newRecursiveSplitter(opts),
	}
}

// NewPDFParser extracts text page by page.
func NewPDFParser(opts Options) Parser {
	opts = opts.withDefaults()
	return &loaderParser{
		name: "pdf",
		opts: opts,
		load: func(src Source) documentloaders.Loader {
			return documentloaders.NewPDF(bytes.NewReader(src.Content), int64(len(src.Content)))
		},
		splitter: newRecursiveSplitter(opts),
	}
}

// splitText splits an already extracted text, used for transcripts.
func splitText(ctx context.Context, text string, opts Options) ([]schema.Document, error) {
	return documentloaders.NewText(bytes.NewReader([]byte(text))).LoadAndSplit(ctx, newRecursiveSplitter(opts))
}
