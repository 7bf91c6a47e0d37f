package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/aleister1102/pagewatch/internal/common"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerBuilder provides a fluent interface for building zerolog loggers.
type LoggerBuilder struct {
	config LogConfig
}

// NewLoggerBuilder creates a new logger builder with default configuration.
func NewLoggerBuilder() *LoggerBuilder {
	return &LoggerBuilder{config: NewDefaultLogConfig()}
}

// WithConfig sets the logger configuration.
func (lb *LoggerBuilder) WithConfig(cfg LogConfig) *LoggerBuilder {
	lb.config = cfg
	return lb
}

// Build creates the logger instance.
func (lb *LoggerBuilder) Build() (zerolog.Logger, error) {
	level, err := parseLevel(lb.config.LogLevel)
	if err != nil {
		return zerolog.Logger{}, err
	}

	writers := lb.createWriters()
	if len(writers) == 0 {
		return zerolog.Logger{}, common.NewError("no log output writers configured")
	}

	multiWriter := zerolog.MultiLevelWriter(writers...)
	instance := zerolog.New(multiWriter).
		Level(level).
		With().
		Timestamp().
		Logger()

	zerolog.SetGlobalLevel(level)
	return instance, nil
}

// New creates a new logger instance from the given configuration.
func New(cfg LogConfig) (zerolog.Logger, error) {
	return NewLoggerBuilder().WithConfig(cfg).Build()
}

func (lb *LoggerBuilder) createWriters() []io.Writer {
	var writers []io.Writer

	if lb.config.EnableConsole {
		if strings.EqualFold(lb.config.LogFormat, "json") {
			writers = append(writers, os.Stderr)
		} else {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		}
	}

	if lb.config.LogFile != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   lb.config.LogFile,
			MaxSize:    lb.config.MaxLogSizeMB,
			MaxBackups: lb.config.MaxLogBackups,
			Compress:   true,
		})
	}

	return writers
}

func parseLevel(levelStr string) (zerolog.Level, error) {
	if levelStr == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		return zerolog.InfoLevel, common.NewValidationError("log_level", levelStr, "unknown log level")
	}
	return level, nil
}
