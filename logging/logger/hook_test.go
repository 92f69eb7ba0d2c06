package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ncobase/ohsmetrics/ctxutil"
	"github.com/ncobase/ohsmetrics/logging/logger/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestHookLevels(t *testing.T) {
	assert.Equal(t, []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel}, HookLevels("error"))
	assert.Len(t, HookLevels("bogus"), 4)
	assert.Len(t, HookLevels("trace"), len(logrus.AllLevels))
}

func TestDocument(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	entry := &logrus.Entry{
		Time:    ts,
		Level:   logrus.WarnLevel,
		Message: "cache sweep slow",
		Data:    logrus.Fields{"evicted": 3, logrus.ErrorKey: errors.New("boom")},
	}
	doc := Document(entry)
	assert.Equal(t, "2024-01-02T03:04:05Z", doc["@timestamp"])
	assert.Equal(t, "warning", doc["level"])
	assert.Equal(t, "cache sweep slow", doc["message"])
	assert.Equal(t, "boom", doc[logrus.ErrorKey])
	assert.Equal(t, 3, doc["evicted"])
}

func TestIndexName(t *testing.T) {
	cfg := &config.Config{IndexName: "ohs-log", DateSuffix: "2006.01.02"}
	ts := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "ohs-log", IndexName(cfg, ts))
	cfg.RotateDaily = true
	assert.Equal(t, "ohs-log-2024.05.06", IndexName(cfg, ts))
}

func TestEntryFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{Logger: logrus.New()}
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetVersion("1.2.3")

	ctx := ctxutil.WithLabels(ctxutil.SetTraceID(context.Background(), "tid"), map[string]string{"metric": "home"})
	l.Infof(ctx, "computed %s", "home")

	out := buf.String()
	assert.Contains(t, out, `"trace_id":"tid"`)
	assert.Contains(t, out, `"metric":"home"`)
	assert.Contains(t, out, `"version":"1.2.3"`)
	assert.Contains(t, out, `"msg":"computed home"`)
}

func TestInitSkipsUnconfiguredSinks(t *testing.T) {
	l := &Logger{Logger: logrus.New()}
	cleanup, err := l.Init(&config.Config{Level: int(logrus.InfoLevel), Output: "stderr"})
	assert.NoError(t, err)
	defer cleanup()
	for _, hooks := range l.Hooks {
		assert.Empty(t, hooks)
	}
}
