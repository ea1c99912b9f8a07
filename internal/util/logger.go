package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const LOG_BUFFER_SIZE = 256 * 1024

var ErrLogNotInitialized = errors.New("log object is not initialized yet")

const (
	LOG_LEVEL_ERROR = iota + 1
	LOG_LEVEL_WARN
	LOG_LEVEL_INFO
	LOG_LEVEL_DEBUG
)

type LogOptions struct {
	Dir     string
	File    string
	Level   string
	Console bool
	Rewrite bool
}

// Logger is a thin wrapper over zap. The zero value drops every event,
// which lets handlers run in tests without any log setup.
type Logger struct {
	zapLogger *zap.Logger
	buffered  *zapcore.BufferedWriteSyncer
	handle    *os.File
}

func NewLogger(opts LogOptions) (*Logger, error) {
	l := &Logger{}

	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder := zapcore.NewConsoleEncoder(config)

	level := ParseLevel(opts.Level)

	var cores []zapcore.Core

	if opts.File != "" {
		CheckAndCreateLogFolder(opts.Dir)

		flags := os.O_RDWR | os.O_CREATE | os.O_APPEND
		if opts.Rewrite {
			flags = os.O_RDWR | os.O_CREATE | os.O_TRUNC
		}

		handle, err := os.OpenFile(filepath.Join(opts.Dir, opts.File), flags, 0666)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		l.handle = handle
		l.buffered = &zapcore.BufferedWriteSyncer{
			WS:            zapcore.AddSync(handle),
			Size:          LOG_BUFFER_SIZE,
			FlushInterval: 5 * time.Second,
		}
		cores = append(cores, zapcore.NewCore(encoder, l.buffered, level))
	}

	if opts.Console || len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level))
	}

	l.zapLogger = zap.New(zapcore.NewTee(cores...))
	return l, nil
}

// ParseLevel maps a config level name (or the numeric LOG_LEVEL_* value) to zap.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error", fmt.Sprint(LOG_LEVEL_ERROR):
		return zapcore.ErrorLevel
	case "warn", "warning", fmt.Sprint(LOG_LEVEL_WARN):
		return zapcore.WarnLevel
	case "debug", fmt.Sprint(LOG_LEVEL_DEBUG):
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	if l == nil || l.zapLogger == nil {
		return
	}
	l.zapLogger.Debug(msg, fields...)
}

func (l *Logger) Info(msg string, fields ...zap.Field) {
	if l == nil || l.zapLogger == nil {
		return
	}
	l.zapLogger.Info(msg, fields...)
}

func (l *Logger) Warn(msg string, fields ...zap.Field) {
	if l == nil || l.zapLogger == nil {
		return
	}
	l.zapLogger.Warn(msg, fields...)
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	if l == nil || l.zapLogger == nil {
		return
	}
	l.zapLogger.Error(msg, fields...)
}

// Named returns a child logger tagged with the component name.
func (l *Logger) Named(name string) *Logger {
	if l == nil || l.zapLogger == nil {
		return &Logger{}
	}
	return &Logger{zapLogger: l.zapLogger.Named(name)}
}

// Close flushes buffered entries and closes the log file. Only the root
// logger returned by NewLogger owns the file.
func (l *Logger) Close() error {
	if l == nil || l.zapLogger == nil {
		return ErrLogNotInitialized
	}
	_ = l.zapLogger.Sync()
	if l.buffered != nil {
		if err := l.buffered.Stop(); err != nil {
			return err
		}
	}
	if l.handle != nil {
		return l.handle.Close()
	}
	return nil
}

func CheckAndCreateLogFolder(FolderNameWithPath string) {
	if FolderNameWithPath == "" {
		return
	}
	_, err := os.Stat(FolderNameWithPath)

	if os.IsNotExist(err) {
		err := os.MkdirAll(FolderNameWithPath, 0755)
		if err != nil {
			fmt.Println("Failed to create the log folder and Mkdir err :: ", err)
		}
	}
}
