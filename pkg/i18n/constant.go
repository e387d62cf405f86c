package i18n

var ALLOW_LANG = map[string]bool{
	"en":    true,
	"zh-CN": true,
}

const DEFAULT_LANG = "en"

const (
	ERROR_INTERNAL          = "error.internal"
	ERROR_NOT_FOUND         = "error.notfound"
	ERROR_INVALIDARGUMENT   = "error.invalidargument"
	ERROR_PERMISSION_DENIED = "error.permission.denied"
	ERROR_UNAUTHORIZED      = "error.unauthorized"
	ERROR_FORBIDDEN         = "error.forbidden"
	ERROR_TOO_MANY_REQUESTS = "error.tooManyRequests"
	ERROR_INVALID_TOKEN     = "error.invalid.token"

	ERROR_QUOTA_EXCEEDED        = "error.upload.quota_exceeded"
	ERROR_FILE_ALREADY_EXISTS   = "error.upload.file_exists"
	ERROR_STORAGE_UPLOAD_FAILED = "error.upload.storage_failed"
	ERROR_EMPTY_FILE            = "error.upload.empty_file"
	ERROR_UNSUPPORTED_FILE_TYPE = "error.process.unsupported_file_type"
	ERROR_PARSE_FAILED          = "error.process.parse_failed"
	ERROR_VECTOR_WRITE_FAILED   = "error.process.vector_write_failed"

	MESSAGE_FILE_PROCESSING_STARTED = "message.upload.processing_started"
)
