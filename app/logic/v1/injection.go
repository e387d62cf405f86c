package v1

import (
	"context"

	"github.com/brainhub/brain-ingest/pkg/security"
)

const (
	TOKEN_CONTEXT_KEY = "__brain.access_token"
	LANGUAGE_KEY      = "__brain.accept_language"
	APPID_KEY         = "__brain.appid"
)

func InjectAppid(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(APPID_KEY).(string)
	return val, ok
}

// InjectTokenClaim get user/platform token claims from context
func InjectTokenClaim(ctx context.Context) (security.TokenClaims, bool) {
	val, ok := ctx.Value(TOKEN_CONTEXT_KEY).(security.TokenClaims)
	return val, ok
}

const BRAINID_CONTEXT_KEY = "__brain.brainid"

func InjectBrainID(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(BRAINID_CONTEXT_KEY).(string)
	return val, ok
}

func InjectLanguage(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(LANGUAGE_KEY).(string)
	return val, ok
}
