// Package logger is the process wide logrus logger.
// Every entry logged with a context carries its trace id and call labels.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ncobase/ohsmetrics/ctxutil"
	"github.com/ncobase/ohsmetrics/logging/logger/config"
	"github.com/sirupsen/logrus"
)

// Key constants
const (
	VersionKey = "version"
	ServiceKey = "service"
)

// Logger represents logger instance
type Logger struct {
	*logrus.Logger
	mu      sync.Mutex
	version string
	service string
	logFile *os.File
	logPath string
	stop    chan struct{}
}

var (
	stdLogger *Logger
	once      sync.Once
)

// StdLogger returns the single logger instance
func StdLogger() *Logger {
	once.Do(func() {
		stdLogger = &Logger{Logger: logrus.New()}
		stdLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	})
	return stdLogger
}

// SetVersion sets the version for logging
func (l *Logger) SetVersion(v string) {
	l.version = v
}

// SetService sets the service name added to every entry.
func (l *Logger) SetService(s string) {
	l.service = s
}

// Init applies c and attaches the configured sinks.
func (l *Logger) Init(c *config.Config) (func(), error) {
	if c == nil {
		c = config.Default()
	}
	l.SetLevel(logrus.Level(c.Level))

	switch c.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch c.Output {
	case "stderr":
		l.SetOutput(os.Stderr)
	case "file":
		if c.OutputFile == "" {
			return nil, fmt.Errorf("logger output is file but output_file is empty")
		}
		l.logPath = c.OutputFile
		if err := l.setupLogFile(); err != nil {
			return nil, err
		}
		l.stop = make(chan struct{})
		go l.periodicLogRotation(l.stop)
	default:
		l.SetOutput(os.Stdout)
	}

	if err := l.initHooks(c); err != nil {
		return nil, err
	}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.stop != nil {
			close(l.stop)
			l.stop = nil
		}
		if l.logFile != nil {
			_ = l.logFile.Close()
			l.logFile = nil
		}
	}, nil
}

func (l *Logger) setupLogFile() error {
	if err := os.MkdirAll(filepath.Dir(l.logPath), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return l.rotateLog()
}

// rotateLog switches output to a file named after the current day.
func (l *Logger) rotateLog() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	logFilePath := fmt.Sprintf("%s.%s.log", strings.TrimSuffix(l.logPath, ".log"), time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open new log file: %w", err)
	}

	old := l.logFile
	l.logFile = f
	l.Logger.SetOutput(f)
	if old != nil {
		_ = old.Close()
	}
	return nil
}

func (l *Logger) periodicLogRotation(stop <-chan struct{}) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := l.rotateLog(); err != nil {
				l.Logger.Errorf("Error rotating log: %v", err)
			}
		}
	}
}

// entryFromContext creates a new log entry with fields from context
func (l *Logger) entryFromContext(ctx context.Context) *logrus.Entry {
	fields := logrus.Fields{}
	if ctx != nil {
		if traceID := ctxutil.GetTraceID(ctx); traceID != "" {
			fields[ctxutil.TraceIDKey] = traceID
		}
		if source := ctxutil.GetSource(ctx); source != "" {
			fields["source"] = source
		}
		for k, v := range ctxutil.GetLabels(ctx) {
			fields[k] = v
		}
	}
	if l.version != "" {
		fields[VersionKey] = l.version
	}
	if l.service != "" {
		fields[ServiceKey] = l.service
	}
	return l.WithFields(fields)
}

// WithContext returns an entry carrying the context fields.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	return l.entryFromContext(ctx)
}

// Debugf logs a debug message with format
func (l *Logger) Debugf(ctx context.Context, format string, args ...any) {
	l.entryFromContext(ctx).Debugf(format, args...)
}

// Infof logs an info message with format
func (l *Logger) Infof(ctx context.Context, format string, args ...any) {
	l.entryFromContext(ctx).Infof(format, args...)
}

// Warnf logs a warn message with format
func (l *Logger) Warnf(ctx context.Context, format string, args ...any) {
	l.entryFromContext(ctx).Warnf(format, args...)
}

// Errorf logs an error message with format
func (l *Logger) Errorf(ctx context.Context, format string, args ...any) {
	l.entryFromContext(ctx).Errorf(format, args...)
}

// Fatalf logs a fatal message with format
func (l *Logger) Fatalf(ctx context.Context, format string, args ...any) {
	l.entryFromContext(ctx).Fatalf(format, args...)
}

// SetOutput sets the output destination for the logger
func (l *Logger) SetOutput(out io.Writer) {
	l.Logger.SetOutput(out)
}

// AddHook adds a hook unless it is already attached.
func (l *Logger) AddHook(hook logrus.Hook) {
	for _, hooks := range l.Hooks {
		for _, existing := range hooks {
			if existing == hook {
				return
			}
		}
	}
	l.Logger.AddHook(hook)
}

// New initializes the standard logger.
func New(c *config.Config) (func(), error) { return StdLogger().Init(c) }

// SetVersion sets the version for logging
func SetVersion(v string) { StdLogger().SetVersion(v) }

// WithFields returns an entry with the given fields
func WithFields(ctx context.Context, fields logrus.Fields) *logrus.Entry {
	return StdLogger().entryFromContext(ctx).WithFields(fields)
}

// Debugf logs debug message with format
func Debugf(ctx context.Context, format string, args ...any) {
	StdLogger().Debugf(ctx, format, args...)
}

// Infof logs info message with format
func Infof(ctx context.Context, format string, args ...any) {
	StdLogger().Infof(ctx, format, args...)
}

// Warnf logs warn message with format
func Warnf(ctx context.Context, format string, args ...any) {
	StdLogger().Warnf(ctx, format, args...)
}

// Errorf logs error message with format
func Errorf(ctx context.Context, format string, args ...any) {
	StdLogger().Errorf(ctx, format, args...)
}

// Fatalf logs fatal message with format
func Fatalf(ctx context.Context, format string, args ...any) {
	StdLogger().Fatalf(ctx, format, args...)
}

// SetOutput sets the output destination for the logger
func SetOutput(out io.Writer) { StdLogger().SetOutput(out) }
