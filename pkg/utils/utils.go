package utils

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/holdno/snowFlakeByGo"
	"golang.org/x/text/language"

	"github.com/brainhub/brain-ingest/pkg/errors"
	"github.com/brainhub/brain-ingest/pkg/i18n"
)

var (
	// IdWorker 全局唯一id生成器实例
	idWorker *snowFlakeByGo.Worker
)

func init() {
	SetupIDWorker(1)
}

func SetupIDWorker(clusterID int64) {
	idWorker, _ = snowFlakeByGo.NewWorker(clusterID)
}

func GenUniqID() int64 {
	return idWorker.GetId()
}

// GenUniqIDStr 用于 knowledge / notification 主键
func GenUniqIDStr() string {
	return strconv.FormatInt(GenUniqID(), 10)
}

// GenRandomID 32 位请求 ID
func GenRandomID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SHA1 returns the hex encoded sha1 digest of raw.
func SHA1(raw []byte) string {
	sum := sha1.Sum(raw)
	return hex.EncodeToString(sum[:])
}

func BindArgsWithGin(c *gin.Context, req interface{}) error {
	err := c.ShouldBindWith(req, binding.Default(c.Request.Method, c.ContentType()))
	if err != nil {
		return errors.New(fmt.Sprintf("Gin.ShouldBindWith.%s.%s", c.Request.Method, c.Request.URL.Path), i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest)
	}
	return nil
}

func BindUriWithGin(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindUri(req); err != nil {
		return errors.New(fmt.Sprintf("Gin.ShouldBindUri.%s.%s", c.Request.Method, c.Request.URL.Path), i18n.ERROR_INVALIDARGUMENT, err).Code(http.StatusBadRequest)
	}
	return nil
}

// Language represents a language and its weight (priority)
type Language struct {
	Tag    string  // Language tag, e.g., "en-US"
	Weight float64 // Weight (priority), default is 1.0
}

// ParseAcceptLanguage parses the Accept-Language header and returns the languages sorted by weight.
func ParseAcceptLanguage(header string) []Language {
	tags, weights, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return []Language{}
	}

	languages := make([]Language, 0, len(tags))
	for i, tag := range tags {
		languages = append(languages, Language{Tag: tag.String(), Weight: float64(weights[i])})
	}
	return languages
}
