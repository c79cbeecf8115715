// Package panichandler centralizes panic recovery so that a bug in one
// tenant's throttle accounting, one telemetry subscriber, or one CLI
// command never takes the whole process down with it.
package panichandler

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/hydraide/iothrottle/app/paniclogger"
)

// Recover logs a recovered panic with its stack trace, both to
// panic.log and to the process's structured logger.
// Usage: defer panichandler.Recover("estimator loop")
func Recover(context string) {
	if r := recover(); r != nil {
		stackTrace := debug.Stack()

		paniclogger.LogPanic(context, r, string(stackTrace), nil)

		slog.Error("caught panic",
			slog.String("context", context),
			slog.Any("error", r),
			slog.String("stack", string(stackTrace)),
		)
	}
}

// RecoverWithData behaves like Recover but attaches extra structured
// fields to both the log entry and the panic.log record, e.g. the
// tenant ID or probe name active when it fired.
func RecoverWithData(context string, data map[string]any) {
	if r := recover(); r != nil {
		stackTrace := debug.Stack()

		paniclogger.LogPanic(context, r, string(stackTrace), data)

		attrs := []any{
			slog.String("context", context),
			slog.Any("error", r),
			slog.String("stack", string(stackTrace)),
		}
		for key, value := range data {
			attrs = append(attrs, slog.Any(key, value))
		}

		slog.Error("caught panic", attrs...)
	}
}

// SafeGo starts fn in a goroutine that survives its own panics: a
// panic is logged and swallowed rather than crashing the process. The
// CLI's run command uses it for its optional host-resource logger.
// Usage: panichandler.SafeGo("resource logger", func() { ... })
func SafeGo(context string, fn func()) {
	go func() {
		defer recoverGoroutine(fmt.Sprintf("goroutine: %s", context), nil)
		fn()
	}()
}

// SafeGoWithCallback is SafeGo plus a callback that runs only if fn
// panicked, e.g. to mark a worker unhealthy so it gets respawned.
func SafeGoWithCallback(context string, fn func(), callback func()) {
	go func() {
		defer recoverGoroutine(fmt.Sprintf("goroutine: %s", context), callback)
		fn()
	}()
}

func recoverGoroutine(context string, callback func()) {
	if r := recover(); r != nil {
		stackTrace := debug.Stack()

		paniclogger.LogPanic(context, r, string(stackTrace), nil)

		slog.Error("goroutine panic caught (process continues running)",
			slog.String("context", context),
			slog.Any("error", r),
			slog.String("stack", string(stackTrace)),
		)

		if callback != nil {
			defer func() {
				if r2 := recover(); r2 != nil {
					slog.Error("panic in goroutine panic callback",
						slog.String("original_context", context),
						slog.Any("callback_error", r2),
					)
				}
			}()
			callback()
		}
	}
}
