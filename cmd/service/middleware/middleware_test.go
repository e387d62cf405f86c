package middleware

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	v1 "github.com/brainhub/brain-ingest/app/logic/v1"
	"github.com/brainhub/brain-ingest/app/response"
	"github.com/brainhub/brain-ingest/pkg/types"
)

type fakeTokens struct {
	tokens map[string]*types.AccessToken
	err    error
}

func (f *fakeTokens) GetAccessToken(ctx context.Context, appid, token string) (*types.AccessToken, error) {
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.tokens[appid+":"+token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return t, nil
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(I18n(), response.NewResponse(), SetAppid())
	r.GET("/", append(handlers, func(c *gin.Context) {
		claims, _ := v1.InjectTokenClaim(c)
		response.APISuccess(c, claims.User)
	})...)
	return r
}

func serve(r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthorization(t *testing.T) {
	tokens := &fakeTokens{tokens: map[string]*types.AccessToken{
		types.DEFAULT_APPID + ":valid":   {Appid: types.DEFAULT_APPID, UserID: "user-1", Token: "valid", ExpiresAt: time.Now().Add(time.Hour).Unix()},
		types.DEFAULT_APPID + ":expired": {Appid: types.DEFAULT_APPID, UserID: "user-1", Token: "expired", ExpiresAt: time.Now().Add(-time.Hour).Unix()},
		types.DEFAULT_APPID + ":badver":  {Appid: types.DEFAULT_APPID, UserID: "user-1", Token: "badver", Version: "v9", ExpiresAt: time.Now().Add(time.Hour).Unix()},
	}}

	cases := []struct {
		name    string
		headers map[string]string
		code    int
	}{
		{"valid access token", map[string]string{ACCESS_TOKEN_HEADER_KEY: "valid"}, http.StatusOK},
		{"expired access token", map[string]string{ACCESS_TOKEN_HEADER_KEY: "expired"}, http.StatusUnauthorized},
		{"unknown access token", map[string]string{ACCESS_TOKEN_HEADER_KEY: "nope"}, http.StatusUnauthorized},
		{"unsupported token version", map[string]string{ACCESS_TOKEN_HEADER_KEY: "badver"}, http.StatusUnauthorized},
		{"malformed jwt", map[string]string{AUTH_TOKEN_HEADER_KEY: "Bearer not-a-jwt"}, http.StatusUnauthorized},
		{"no credentials", nil, http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(newEngine(NewAuthorization(tokens, nil)), tc.headers)
			assert.Equal(t, tc.code, w.Code)
			if tc.code == http.StatusOK {
				assert.Contains(t, w.Body.String(), "user-1")
			}
		})
	}
}

func TestAuthorizationStoreFailure(t *testing.T) {
	tokens := &fakeTokens{err: fmt.Errorf("connection refused")}
	w := serve(newEngine(NewAuthorization(tokens, nil)), map[string]string{ACCESS_TOKEN_HEADER_KEY: "valid"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAuthorizationUsesAppidHeader(t *testing.T) {
	tokens := &fakeTokens{tokens: map[string]*types.AccessToken{
		"tenant:valid": {Appid: "tenant", UserID: "user-2", Token: "valid", ExpiresAt: time.Now().Add(time.Hour).Unix()},
	}}

	w := serve(newEngine(NewAuthorization(tokens, nil)), map[string]string{ACCESS_TOKEN_HEADER_KEY: "valid", APPID_HEADER: "tenant"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-2")

	w = serve(newEngine(NewAuthorization(tokens, nil)), map[string]string{ACCESS_TOKEN_HEADER_KEY: "valid"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUseLimit(t *testing.T) {
	limiters := NewKeyedLimiter()
	r := newEngine(UseLimit(limiters, func(c *gin.Context) string {
		return "upload:" + c.ClientIP()
	}, WithLimit(1)))

	// burst 为 limit 的两倍
	assert.Equal(t, http.StatusOK, serve(r, nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, nil).Code)
}

func TestKeyedLimiterReusesLimiter(t *testing.T) {
	limiters := NewKeyedLimiter()
	a := limiters.Get("k", WithLimit(5))
	b := limiters.Get("k", WithLimit(100))
	assert.Same(t, a, b)
	assert.Equal(t, 10, a.Burst())

	assert.Equal(t, 120, limiters.Get("default").Burst())
	assert.NotSame(t, a, limiters.Get("other"))
}
