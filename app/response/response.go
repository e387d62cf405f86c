package response

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brainhub/brain-ingest/pkg/errors"
	"github.com/brainhub/brain-ingest/pkg/i18n"
	"github.com/brainhub/brain-ingest/pkg/utils"
)

// 常量定义
const (
	RequestIDKey = "request_id"
	ResponseKey  = "response_key"
	UserIDKey    = "user_id"
	LocalizerKey = "i18n"
	startTimeKey = "__response.start"
)

func ProvideResponseLocalizer(l i18n.Localizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(LocalizerKey, l)
	}
}

func InjectResponseLocalizer(c *gin.Context) i18n.Localizer {
	return c.MustGet(LocalizerKey).(i18n.Localizer)
}

// Response 响应结构体定义
type Response struct {
	Meta Meta        `json:"meta"`
	Data interface{} `json:"data"`
}

// Meta 响应meta定义
type Meta struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// GetLangFromRequestOrDefault 取 Accept-Language 中第一个受支持的语言
func GetLangFromRequestOrDefault(c *gin.Context) string {
	for _, lang := range utils.ParseAcceptLanguage(c.Request.Header.Get("Accept-Language")) {
		tag := lang.Tag
		if strings.HasPrefix(tag, "zh") {
			tag = "zh-CN"
		}
		if i18n.ALLOW_LANG[tag] {
			return tag
		}
	}
	return i18n.DEFAULT_LANG
}

// APIError api响应失败
func APIError(c *gin.Context, err error) {
	c.Abort()
	res := c.MustGet(ResponseKey).(*Response)

	var cerr *errors.CustomizedError
	if !stderrors.As(err, &cerr) {
		res.Meta.Code = http.StatusInternalServerError
		res.Meta.Message = err.Error()
	} else {
		l := InjectResponseLocalizer(c)
		lang := GetLangFromRequestOrDefault(c)
		res.Meta.Code = cerr.GetCode()
		if data := cerr.Data(); len(data) > 0 {
			res.Meta.Message = l.GetWithData(lang, cerr.Message(), data)
		} else {
			res.Meta.Message = l.Get(lang, cerr.Message())
		}
	}

	c.JSON(res.Meta.Code, res)
	slog.Error("response error", requestAttrs(c, res.Meta.Code, slog.String("error", err.Error()))...)
}

// APISuccess api响应成功
func APISuccess(c *gin.Context, response interface{}) {
	c.Abort()
	res := c.MustGet(ResponseKey).(*Response)
	res.Meta.Code = http.StatusOK
	if response != nil {
		res.Data = response
	}
	c.JSON(http.StatusOK, res)
	// multipart 上传只记录 query
	slog.Info("request success", requestAttrs(c, http.StatusOK, slog.String("params", c.Request.URL.RawQuery))...)
}

func requestAttrs(c *gin.Context, code int, extra ...any) []any {
	attrs := []any{
		slog.String(RequestIDKey, c.GetString(RequestIDKey)),
		slog.String("method", c.Request.Method),
		slog.String("request_uri", c.Request.URL.Path),
		slog.Int("code", code),
	}
	if start, ok := c.Get(startTimeKey); ok {
		attrs = append(attrs, slog.Duration("latency", time.Since(start.(time.Time))))
	}
	// 如果有uid打印uid
	if uid := c.GetString(UserIDKey); uid != "" {
		attrs = append(attrs, slog.String("uid", uid))
	}
	return append(attrs, extra...)
}

// NewResponse 为每个请求生成 request id 并挂载响应体
func NewResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := utils.GenRandomID()
		c.Set(RequestIDKey, requestID)
		c.Set(startTimeKey, time.Now())
		c.Set(ResponseKey, &Response{
			Meta: Meta{
				RequestID: requestID,
			},
		})
		c.Header("X-Request-Id", requestID)
	}
}
