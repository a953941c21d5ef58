package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/crmarques/prismafmt/config"
	"github.com/crmarques/prismafmt/faults"
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logr logger backed by zap. debug forces the debug level so
// V(1) messages are emitted.
func New(cfg config.Logging, debug bool, writer io.Writer) (logr.Logger, func(), error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return logr.Discard(), func() {}, err
	}
	if debug {
		level = zapcore.DebugLevel
	}

	production := zap.NewProductionConfig()
	production.Level = zap.NewAtomicLevelAt(level)

	encoderConfig := production.EncoderConfig
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", config.LogFormatConsole:
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case config.LogFormatJSON:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return logr.Discard(), func() {}, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("unsupported log format %q", cfg.Format),
			nil,
		)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(writer), production.Level)
	logger := zap.New(core)
	return zapr.NewLogger(logger), func() { _ = logger.Sync() }, nil
}

func parseLevel(value string) (zapcore.Level, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(trimmed)
	if err != nil {
		return zapcore.InfoLevel, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("unsupported log level %q", value),
			err,
		)
	}
	return level, nil
}
