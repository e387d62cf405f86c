package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLang(t *testing.T) {
	l := NewLocalizer("zh-CN", "en")

	assert.Equal(t, "File notes.txt already exists in storage.", l.GetWithData("en", ERROR_FILE_ALREADY_EXISTS, map[string]interface{}{
		"file_name": "notes.txt",
	}))
	assert.Equal(t, "File processing has started.", l.Get("en", MESSAGE_FILE_PROCESSING_STARTED))
}

func TestUnknownLangFallsBackToDefault(t *testing.T) {
	l := NewLocalizer("en")

	assert.Equal(t, "Internal server error, please try again later", l.Get("fr", ERROR_INTERNAL))
}

func TestUnloadedDefaultReturnsID(t *testing.T) {
	l := NewLocalizer("zh-CN")

	assert.Equal(t, ERROR_INTERNAL, l.Get("fr", ERROR_INTERNAL))
}

func TestUnknownIDReturnsID(t *testing.T) {
	l := NewLocalizer("en")

	assert.Equal(t, "error.not.registered", l.Get("en", "error.not.registered"))
}
