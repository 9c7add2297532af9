// Package telemetry wires optional Sentry error reporting into the errors package.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/gcombe/batnet-go/internal/conf"
	"github.com/gcombe/batnet-go/internal/errors"
)

// Init initializes Sentry when enabled in settings and installs the error
// reporter hook. With telemetry disabled it installs nothing and error
// handling stays fully local.
func Init(settings *conf.Settings) error {
	if !settings.Sentry.Enabled {
		errors.SetTelemetryReporter(nil)
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		Environment:      settings.Sentry.Environment,
		AttachStacktrace: true,
		SampleRate:       1.0,
	})
	if err != nil {
		return fmt.Errorf("initializing sentry: %w", err)
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	return nil
}

// Flush drains pending telemetry events, bounded by the given timeout.
// Safe to call even when telemetry is disabled.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}
