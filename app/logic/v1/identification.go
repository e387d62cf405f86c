package v1

import (
	"context"
	"log/slog"

	"github.com/brainhub/brain-ingest/pkg/security"
)

type _userInfo struct {
	u *security.TokenClaims
}

func (u *_userInfo) GetUserInfo() security.TokenClaims {
	return *u.u
}

func SetupUserInfo(ctx context.Context) UserInfo {
	userInfo, ok := InjectTokenClaim(ctx)
	if !ok {
		slog.Error("Not found user in context", slog.String("component", "logic.v1.setupUserInfo"))
		userInfo = security.TokenClaims{}
	}
	return &_userInfo{
		u: &userInfo,
	}
}

type UserInfo interface {
	GetUserInfo() security.TokenClaims
}
