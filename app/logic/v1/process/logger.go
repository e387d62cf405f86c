package process

import (
	"fmt"
	"log/slog"
	"os"
)

// asynqLogger routes asynq's internal logs to slog.
type asynqLogger struct {
	l *slog.Logger
}

func newAsynqLogger() *asynqLogger {
	return &asynqLogger{l: slog.Default().With(slog.String("component", "asynq"))}
}

func (a *asynqLogger) Debug(args ...interface{}) {
	a.l.Debug(fmt.Sprint(args...))
}

func (a *asynqLogger) Info(args ...interface{}) {
	a.l.Info(fmt.Sprint(args...))
}

func (a *asynqLogger) Warn(args ...interface{}) {
	a.l.Warn(fmt.Sprint(args...))
}

func (a *asynqLogger) Error(args ...interface{}) {
	a.l.Error(fmt.Sprint(args...))
}

func (a *asynqLogger) Fatal(args ...interface{}) {
	a.l.Error(fmt.Sprint(args...))
	os.Exit(1)
}
