package types

const (
	NO_PAGINATION = 0
)

const (
	LANGUAGE_EN_KEY = "en"
	LANGUAGE_CN_KEY = "zh-CN"
)

const (
	DEFAULT_APPID = "brain-ingest"

	// DEFAULT_MAX_BRAIN_SIZE applies when the user has no settings row.
	DEFAULT_MAX_BRAIN_SIZE int64 = 1 << 30
)
