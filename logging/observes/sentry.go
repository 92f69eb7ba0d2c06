package observes

import (
	"github.com/getsentry/sentry-go"
)

// SentryOptions configures error reporting.
type SentryOptions struct {
	Dsn         string
	Name        string
	Release     string
	Environment string
	SampleRate  float64
}

// NewSentry initializes the global Sentry client. A missing DSN disables it.
func NewSentry(opt *SentryOptions) error {
	if opt == nil || opt.Dsn == "" {
		return nil
	}

	rate := opt.SampleRate
	if rate <= 0 || rate > 1 {
		rate = 1.0
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:              opt.Dsn,
		AttachStacktrace: true,
		SampleRate:       rate,
		ServerName:       opt.Name,
		Release:          opt.Release,
		Environment:      opt.Environment,
	})
}
