package utils

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry configures error reporting. An empty DSN leaves reporting
// disabled and is not an error.
func InitSentry(dsn, release string) error {
	if dsn == "" {
		return nil
	}

	opts := sentry.ClientOptions{
		Dsn:              dsn,
		Release:          release,
		AttachStacktrace: true,
	}
	if err := sentry.Init(opts); err != nil {
		return fmt.Errorf("init sentry: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("service", "console-cli")
	})
	return nil
}

// CaptureError reports an error to Sentry, enriching it with context when
// available. A nil error with an empty message is a no-op.
func CaptureError(err error, message string, extras map[string]interface{}) {
	if err == nil && message == "" {
		return
	}

	hub := sentry.CurrentHub()
	if hub == nil {
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		if message != "" {
			scope.SetExtra("context", message)
		}
		for k, v := range extras {
			scope.SetExtra(k, v)
		}

		if err != nil {
			scope.SetTag("sentry.capture_type", "exception")
			hub.CaptureException(err)
		} else {
			scope.SetTag("sentry.capture_type", "message")
			hub.CaptureMessage(message)
		}
	})
}

// CapturePanic converts a recovered panic into a Sentry event.
func CapturePanic(location string, recovered interface{}) {
	if recovered == nil {
		return
	}
	err := fmt.Errorf("panic recovered in %s: %v", location, recovered)
	CaptureError(err, location, map[string]interface{}{
		"panic_value": recovered,
	})
}

// FlushSentry drains pending events before process exit.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
