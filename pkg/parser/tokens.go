package parser

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const DefaultTokenEncoding = "cl100k_base"

// TokenCounter returns the number of model tokens in text.
type TokenCounter func(text string) int

// NewTiktokenCounter counts with the named tiktoken encoding. The encoding is
// loaded on first use; when it cannot be loaded the count is estimated from
// the rune length.
func NewTiktokenCounter(encoding string) TokenCounter {
	var (
		once sync.Once
		tkm  *tiktoken.Tiktoken
	)
	return func(text string) int {
		once.Do(func() {
			var err error
			if tkm, err = tiktoken.GetEncoding(encoding); err != nil {
				slog.Warn("failed to load tiktoken encoding, falling back to estimate",
					slog.String("encoding", encoding),
					slog.String("error", err.Error()))
			}
		})
		if tkm == nil {
			return EstimateTokens(text)
		}
		return len(tkm.Encode(text, nil, nil))
	}
}

// EstimateTokens approximates a token count as a quarter of the rune length.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
