package logging

import (
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes one JSON object per line. Structured calls take an event
// name (noun.verb) plus a field map.
type Logger struct {
	z *zap.Logger
}

func ParseLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func NewLogger(levelStr string) *Logger {
	return NewLoggerWithWriter(levelStr, os.Stdout)
}

func NewLoggerWithWriter(levelStr string, w io.Writer) *Logger {
	core := zapcore.NewCore(newEncoder(), zapcore.AddSync(w), ParseLevel(levelStr))
	return &Logger{z: zap.New(core)}
}

// NewFileLogger writes to stdout and to a size-rotated file at path.
func NewFileLogger(levelStr, path string) *Logger {
	if strings.TrimSpace(path) == "" {
		return NewLogger(levelStr)
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}
	level := ParseLevel(levelStr)
	core := zapcore.NewTee(
		zapcore.NewCore(newEncoder(), zapcore.AddSync(os.Stdout), level),
		zapcore.NewCore(newEncoder(), zapcore.AddSync(rotator), level),
	)
	return &Logger{z: zap.New(core)}
}

func newEncoder() zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		NameKey:        zapcore.OmitKey,
		CallerKey:      zapcore.OmitKey,
		StacktraceKey:  zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	return zapcore.NewJSONEncoder(cfg)
}

func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{z: l.z.With(zap.String("component", name))}
}

func (l *Logger) Debugw(msg string, fields map[string]any) {
	l.logw(zapcore.DebugLevel, msg, fields)
}

func (l *Logger) Infow(msg string, fields map[string]any) {
	l.logw(zapcore.InfoLevel, msg, fields)
}

func (l *Logger) Warnw(msg string, fields map[string]any) {
	l.logw(zapcore.WarnLevel, msg, fields)
}

func (l *Logger) Errorw(msg string, fields map[string]any) {
	l.logw(zapcore.ErrorLevel, msg, fields)
}

func (l *Logger) Sync() error {
	return l.z.Sync()
}

func (l *Logger) logw(level zapcore.Level, msg string, fields map[string]any) {
	ce := l.z.Check(level, msg)
	if ce == nil {
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	zf := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		zf = append(zf, zap.Any(k, fields[k]))
	}
	ce.Write(zf...)
}
