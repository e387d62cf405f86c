package middleware

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/brainhub/brain-ingest/app/core"
	v1 "github.com/brainhub/brain-ingest/app/logic/v1"
	"github.com/brainhub/brain-ingest/app/response"
	"github.com/brainhub/brain-ingest/pkg/errors"
	"github.com/brainhub/brain-ingest/pkg/i18n"
	"github.com/brainhub/brain-ingest/pkg/security"
	"github.com/brainhub/brain-ingest/pkg/types"
	"github.com/brainhub/brain-ingest/pkg/utils"
)

func I18n() gin.HandlerFunc {
	var allowList []string
	for k := range i18n.ALLOW_LANG {
		allowList = append(allowList, k)
	}
	l := i18n.NewLocalizer(allowList...)

	return response.ProvideResponseLocalizer(l)
}

// AcceptLanguage 目前服务端支持 en: English, zh-CN: 简体中文
func AcceptLanguage() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		lang := ctx.Request.Header.Get("Accept-Language")
		if lang == "" {
			ctx.Set(v1.LANGUAGE_KEY, types.LANGUAGE_EN_KEY)
			return
		}

		res := utils.ParseAcceptLanguage(lang)
		if len(res) == 0 {
			ctx.Set(v1.LANGUAGE_KEY, types.LANGUAGE_EN_KEY)
			return
		}

		ctx.Set(v1.LANGUAGE_KEY, lo.If(strings.Contains(res[0].Tag, "zh"), types.LANGUAGE_CN_KEY).Else(types.LANGUAGE_EN_KEY))
	}
}

const (
	ACCESS_TOKEN_HEADER_KEY = "X-Access-Token"
	AUTH_TOKEN_HEADER_KEY   = "X-Authorization"
	APPID_HEADER            = "X-Appid"
)

type AccessTokenGetter interface {
	GetAccessToken(ctx context.Context, appid, token string) (*types.AccessToken, error)
}

func Authorization(core *core.Core) gin.HandlerFunc {
	return NewAuthorization(core.Store().AccessTokenStore(), []byte(core.Cfg().Security.JWTPublicKey))
}

// NewAuthorization 优先校验 X-Access-Token，其次校验 X-Authorization 中的 JWT
func NewAuthorization(tokens AccessTokenGetter, publicKey []byte) gin.HandlerFunc {
	tracePrefix := "middleware.Authorization"
	return func(ctx *gin.Context) {
		matched, err := checkAccessToken(ctx, tokens)
		if err != nil {
			response.APIError(ctx, errors.Trace(tracePrefix, err))
			return
		}

		if matched {
			return
		}

		if matched, err = checkAuthToken(ctx, publicKey); err != nil {
			response.APIError(ctx, errors.Trace(tracePrefix, err))
			return
		}

		if !matched {
			response.APIError(ctx, errors.New(tracePrefix, i18n.ERROR_UNAUTHORIZED, nil).Code(http.StatusUnauthorized))
		}
	}
}

func SetAppid() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		appid := ctx.Request.Header.Get(APPID_HEADER)
		ctx.Set(v1.APPID_KEY, lo.If(appid == "", types.DEFAULT_APPID).Else(appid))
	}
}

// SetBrainID 将路由中的 brainid 写入上下文，权限由 logic 层校验
func SetBrainID(ctx *gin.Context) {
	brainID, _ := ctx.Params.Get("brainid")
	if brainID == "" {
		response.APIError(ctx, errors.New("middleware.SetBrainID", i18n.ERROR_INVALIDARGUMENT, nil).Code(http.StatusBadRequest))
		return
	}
	ctx.Set(v1.BRAINID_CONTEXT_KEY, brainID)
}

func checkAccessToken(c *gin.Context, tokens AccessTokenGetter) (bool, error) {
	tokenValue := c.GetHeader(ACCESS_TOKEN_HEADER_KEY)
	if tokenValue == "" {
		return false, nil
	}

	appid, exist := v1.InjectAppid(c)
	if !exist {
		appid = types.DEFAULT_APPID
	}

	token, err := tokens.GetAccessToken(c, appid, tokenValue)
	if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		return false, errors.New("checkAccessToken.AccessTokenStore.GetAccessToken", i18n.ERROR_INTERNAL, err)
	}

	if token == nil || token.ExpiresAt < time.Now().Unix() {
		return false, errors.New("checkAccessToken.token.check", i18n.ERROR_UNAUTHORIZED, fmt.Errorf("nil token")).Code(http.StatusUnauthorized)
	}

	claims, err := token.TokenClaims()
	if err != nil {
		return false, errors.New("checkAccessToken.TokenClaims", i18n.ERROR_INVALID_TOKEN, err).Code(http.StatusUnauthorized)
	}

	setClaims(c, claims)
	return true, nil
}

func checkAuthToken(c *gin.Context, publicKey []byte) (bool, error) {
	tokenValue := c.GetHeader(AUTH_TOKEN_HEADER_KEY)
	if tokenValue == "" {
		return false, nil
	}

	claims, err := security.VerifyToken(strings.TrimPrefix(tokenValue, "Bearer "), publicKey)
	if err != nil {
		return false, errors.New("checkAuthToken.VerifyToken", i18n.ERROR_INVALID_TOKEN, err).Code(http.StatusUnauthorized)
	}

	setClaims(c, *claims)
	return true, nil
}

func setClaims(c *gin.Context, claims security.TokenClaims) {
	c.Set(v1.TOKEN_CONTEXT_KEY, claims)
	c.Set(response.UserIDKey, claims.User)
}

func Cors(c *gin.Context) {
	method := c.Request.Method
	origin := c.Request.Header.Get("Origin")
	if origin != "" {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, UPDATE")
		c.Header("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization, X-Access-Token, X-Authorization, X-Appid")
		c.Header("Access-Control-Expose-Headers", "Content-Length, Access-Control-Allow-Origin, Access-Control-Allow-Headers, Cache-Control, Content-Language, Content-Type")
		c.Header("Access-Control-Allow-Credentials", "true")
	}
	if method == "OPTIONS" {
		c.AbortWithStatus(http.StatusNoContent)
	}
	c.Next()
}

type LimiterFunc func(key string, opts ...LimitOption) gin.HandlerFunc

func UseLimit(limiters *KeyedLimiter, genKeyFunc func(c *gin.Context) string, opts ...LimitOption) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiters.Get(genKeyFunc(c), opts...).Allow() {
			response.APIError(c, errors.New("middleware.limiter", i18n.ERROR_TOO_MANY_REQUESTS, nil).Code(http.StatusTooManyRequests))
		}
	}
}

// Metrics 记录接口耗时以及 4xx/5xx 响应
func Metrics(m *core.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		api := c.FullPath()
		if api == "" {
			api = "unmatched"
		}
		timer := m.ApiResponseTimer(api)
		c.Next()
		timer.ObserveDuration()

		if status := c.Writer.Status(); status >= http.StatusBadRequest {
			m.ApiErrorInc(c.Request.Method, api, status)
		}
	}
}
