// Package logger provides the process-wide structured logger used by every
// component of ime-observer. It wraps log/slog with the severity vocabulary
// and text/json handler pair the daemon's operators expect, and rotates the
// log file through lumberjack when one is configured.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity levels, ordered the same way the underlying slog levels are.
// TRACE sits below slog's Debug so --debug's most verbose setting still has
// a level underneath it to fall back to.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.Level(-4)
	LevelInfo  = slog.Level(0)
	LevelWarn  = slog.Level(4)
	LevelError = slog.Level(8)
	LevelOff   = slog.Level(12)
)

// Severity names accepted on the CLI and by SetLevel.
const (
	Trace   = "TRACE"
	Debug   = "DEBUG"
	Info    = "INFO"
	Warning = "WARNING"
	Error   = "ERROR"
	Off     = "OFF"
)

// RotateConfig mirrors lumberjack's knobs for the optional log file.
type RotateConfig struct {
	MaxFileSizeMB  int
	BackupFileCount int
	Compress       bool
}

// DefaultRotateConfig is a conservative default for log rotation.
func DefaultRotateConfig() RotateConfig {
	return RotateConfig{MaxFileSizeMB: 512, BackupFileCount: 10, Compress: false}
}

// FileConfig configures an optional on-disk destination for logs, in
// addition to stderr.
type FileConfig struct {
	Path     string
	Severity string
	Format   string
	Rotate   RotateConfig
}

type loggerFactory struct {
	level  *slog.LevelVar
	format string
	file   *lumberjack.Logger
}

var (
	defaultLoggerFactory = &loggerFactory{level: new(slog.LevelVar), format: "text"}
	defaultLogger         = slog.New(defaultLoggerFactory.createJSONOrTextHandler(os.Stderr, defaultLoggerFactory.level, ""))
)

// levelFromName converts a CLI/config severity name to a slog level.
func levelFromName(name string) slog.Level {
	switch name {
	case Trace:
		return LevelTrace
	case Debug:
		return LevelDebug
	case Info:
		return LevelInfo
	case Warning:
		return LevelWarn
	case Error:
		return LevelError
	case Off:
		return LevelOff
	default:
		return LevelInfo
	}
}

func setLoggingLevel(name string, v *slog.LevelVar) {
	v.Set(levelFromName(name))
}

// createJSONOrTextHandler installs this ReplaceAttr on both formats: the
// "time" key becomes "timestamp" (seconds/nanos) for JSON and a formatted
// string for text, and "level" becomes "severity".
func (f *loggerFactory) replaceAttr(groups []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.LevelKey:
		level := a.Value.Any().(slog.Level)
		a.Key = "severity"
		a.Value = slog.StringValue(severityName(level))
	case slog.TimeKey:
		if f.format == "json" {
			t := a.Value.Time()
			a.Key = "timestamp"
			a.Value = slog.GroupValue(
				slog.Int64("seconds", t.Unix()),
				slog.Int64("nanos", int64(t.Nanosecond())),
			)
		} else {
			t := a.Value.Time()
			a.Value = slog.StringValue(t.Format("2006/01/02 15:04:05.000000"))
		}
	}
	return a
}

func severityName(level slog.Level) string {
	switch {
	case level < LevelDebug:
		return Trace
	case level < LevelInfo:
		return Debug
	case level < LevelWarn:
		return Info
	case level < LevelError:
		return Warning
	default:
		return Error
	}
}

func (f *loggerFactory) createJSONOrTextHandler(w io.Writer, level slog.Leveler, _ string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: f.replaceAttr}
	if f.format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SetLogFormat switches between "text" (default) and "json" output.
func SetLogFormat(format string) {
	defaultLoggerFactory.format = format
	writer := io.Writer(os.Stderr)
	if defaultLoggerFactory.file != nil {
		writer = io.MultiWriter(os.Stderr, defaultLoggerFactory.file)
	}
	defaultLogger = slog.New(defaultLoggerFactory.createJSONOrTextHandler(writer, defaultLoggerFactory.level, ""))
}

// SetLevel sets the minimum severity that will be emitted.
func SetLevel(name string) {
	setLoggingLevel(name, defaultLoggerFactory.level)
}

// InitLogFile points the logger at a rotated log file in addition to
// stderr. Pass an empty Path to disable file logging.
func InitLogFile(cfg FileConfig) error {
	if cfg.Path == "" {
		return nil
	}

	defaultLoggerFactory.file = &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.Rotate.MaxFileSizeMB,
		MaxBackups: cfg.Rotate.BackupFileCount,
		Compress:   cfg.Rotate.Compress,
	}
	if cfg.Format != "" {
		defaultLoggerFactory.format = cfg.Format
	}
	if cfg.Severity != "" {
		setLoggingLevel(cfg.Severity, defaultLoggerFactory.level)
	}

	writer := io.MultiWriter(os.Stderr, defaultLoggerFactory.file)
	defaultLogger = slog.New(defaultLoggerFactory.createJSONOrTextHandler(writer, defaultLoggerFactory.level, ""))
	return nil
}

func logf(ctx context.Context, level slog.Level, format string, v ...any) {
	if !defaultLogger.Enabled(ctx, level) {
		return
	}
	msg := format
	if len(v) > 0 {
		msg = fmt.Sprintf(format, v...)
	}
	defaultLogger.Log(ctx, level, msg)
}

func Tracef(format string, v ...any) { logf(context.Background(), LevelTrace, format, v...) }
func Debugf(format string, v ...any) { logf(context.Background(), LevelDebug, format, v...) }
func Infof(format string, v ...any)  { logf(context.Background(), LevelInfo, format, v...) }
func Warnf(format string, v ...any)  { logf(context.Background(), LevelWarn, format, v...) }
func Errorf(format string, v ...any) { logf(context.Background(), LevelError, format, v...) }

// Sync flushes any buffered log file state. Safe to call even when no file
// is configured.
func Sync() error {
	if defaultLoggerFactory.file == nil {
		return nil
	}
	return defaultLoggerFactory.file.Close()
}
