package parser

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/brainhub/brain-ingest/pkg/errors"
	"github.com/brainhub/brain-ingest/pkg/i18n"
)

// Registry maps a lower-cased file extension, dot included, to its parser.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
}

func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// NewDefaultRegistry registers the built-in document parsers.
func NewDefaultRegistry(opts Options) *Registry {
	opts = opts.withDefaults()

	text := NewTextParser(opts)
	markdown := NewMarkdownParser(opts)
	html := NewHTMLParser(opts)

	r := NewRegistry()
	r.Register(".txt", text)
	r.Register(".json", text)
	r.Register(".md", markdown)
	r.Register(".markdown", markdown)
	r.Register(".html", html)
	r.Register(".htm", html)
	r.Register(".csv", NewCSVParser(opts))
	r.Register(".pdf", NewPDFParser(opts))
	return r
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func (r *Registry) Register(ext string, p Parser) {
	r.mu.Lock()
	r.parsers[normalizeExt(ext)] = p
	r.mu.Unlock()
}

// Resolve returns the parser registered for ext. An unknown extension fails
// with errors.ErrUnsupportedFileType.
func (r *Registry) Resolve(ext string) (Parser, error) {
	ext = normalizeExt(ext)

	r.mu.RLock()
	p, ok := r.parsers[ext]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.New("Registry.Resolve", i18n.ERROR_UNSUPPORTED_FILE_TYPE,
			fmt.Errorf("%w: %q", errors.ErrUnsupportedFileType, ext)).Code(http.StatusUnprocessableEntity)
	}
	return p, nil
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := lo.Keys(r.parsers)
	sort.Strings(exts)
	return exts
}
