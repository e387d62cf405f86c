package safe

import (
	"log/slog"
	"runtime/debug"
	"strings"
)

// Run executes fn and recovers any panic into an error log.
func Run(fn func()) {
	RunWithLog(fn, "safe.Run")
}

// RunWithLog is a wrapper that executes fn and logs any panic with full stack trace
func RunWithLog(fn func(), component string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered",
				slog.Any("recover", r),
				slog.String("component", component),
				slog.String("stack", stackTrace(20)),
			)
		}
	}()

	fn()
}

// Go runs fn on a new goroutine under RunWithLog.
func Go(component string, fn func()) {
	go RunWithLog(fn, component)
}

func stackTrace(maxLines int) string {
	lines := strings.Split(string(debug.Stack()), "\n")

	formatted := []string{"Stack trace:"}
	for i, line := range lines {
		if i >= maxLines*2 {
			formatted = append(formatted, "  ... (truncated)")
			break
		}
		if line = strings.TrimSpace(line); line != "" {
			formatted = append(formatted, "  "+line)
		}
	}
	return strings.Join(formatted, "\n")
}
