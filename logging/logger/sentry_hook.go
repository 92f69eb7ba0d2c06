package logger

import (
	"errors"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/ncobase/ohsmetrics/logging/logger/config"
	"github.com/sirupsen/logrus"
)

func init() {
	RegisterHookFactory(HookSentry, newSentryHook)
}

// sentryHook reports error entries to Sentry. The client must be
// initialized beforehand (observes.NewSentry).
type sentryHook struct {
	levels []logrus.Level
}

func newSentryHook(cfg *config.Config) (logrus.Hook, error) {
	return &sentryHook{levels: HookLevels(logrus.ErrorLevel.String())}, nil
}

func (h *sentryHook) Levels() []logrus.Level {
	return h.levels
}

func (h *sentryHook) Fire(entry *logrus.Entry) error {
	hub := sentry.CurrentHub()
	if hub.Client() == nil {
		return nil
	}

	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range Document(entry) {
			scope.SetExtra(k, v)
		}
		if err, ok := entry.Data[logrus.ErrorKey].(error); ok {
			hub.CaptureException(errors.Join(errors.New(entry.Message), err))
			return
		}
		level := sentry.LevelError
		if entry.Level <= logrus.FatalLevel {
			level = sentry.LevelFatal
		}
		scope.SetLevel(level)
		hub.CaptureMessage(entry.Message)
	})
	if entry.Level <= logrus.FatalLevel {
		sentry.Flush(2 * time.Second)
	}
	return nil
}
