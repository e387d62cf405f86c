package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// Failure kinds of the ingestion pipeline. They are carried as the cause of a
// CustomizedError, so callers match them with errors.Is.
var (
	ErrForbidden           = stderrors.New("forbidden")
	ErrQuotaExceeded       = stderrors.New("quota exceeded")
	ErrDuplicateFile       = stderrors.New("duplicate file")
	ErrStorageFailure      = stderrors.New("storage failure")
	ErrUnsupportedFileType = stderrors.New("unsupported file type")
	ErrParseFailure        = stderrors.New("parse failure")
	ErrVectorWriteFailure  = stderrors.New("vector write failure")
)

type CustomizedError struct {
	cause   error
	message string
	trace   []string
	wrap    error
	code    int
	data    map[string]interface{}
}

func (e *CustomizedError) WithData(data map[string]interface{}) *CustomizedError {
	e.data = data
	return e
}

func (e *CustomizedError) Data() map[string]interface{} {
	return e.data
}

func (e *CustomizedError) Code(c int) *CustomizedError {
	e.code = c
	return e
}

func (e *CustomizedError) GetCode() int {
	return e.code
}

func New(trace, message string, err error) *CustomizedError {
	code := http.StatusInternalServerError
	return &CustomizedError{
		cause:   err,
		message: message,
		trace:   []string{trace},
		code:    code,
	}
}

func (e *CustomizedError) Trace(trace string) *CustomizedError {
	e.trace = append(e.trace, trace)
	return e
}

func Wrap(err error, trace, message string) *CustomizedError {
	ce := &CustomizedError{
		cause:   err,
		message: message,
		trace:   []string{trace},
		wrap:    err,
		code:    http.StatusInternalServerError,
	}
	var income *CustomizedError
	if stderrors.As(err, &income) {
		ce.code = income.code
	}
	return ce
}

func Trace(trace string, err error) *CustomizedError {
	if ce, ok := err.(*CustomizedError); ok {
		ce.trace = append(ce.trace, trace)
		return ce
	}
	return Wrap(err, trace, err.Error())
}

func (e *CustomizedError) Message() string {
	if e.message == "" && e.cause != nil {
		return e.cause.Error()
	}
	return e.message
}

func (e *CustomizedError) Unwrap() error {
	return e.cause
}

func (e *CustomizedError) Error() string {
	otherDetails := `""`
	if ce, ok := e.wrap.(*CustomizedError); ok {
		otherDetails = ce.Error()
	} else if e.wrap != nil {
		otherDetails = fmt.Sprint("\"", e.wrap.Error(), "\"")
	}
	return fmt.Sprintf(`{"trace":"%s","code":%d,"msg":"%s","error":"%v","wrapd":%s}`, strings.Join(e.trace, "->"), e.code, e.message, e.cause, otherDetails)
}

// Is reports whether err carries the given failure kind.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
