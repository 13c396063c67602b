// Package logger builds the diagnostic sink for the serial transport on
// top of zap, with optional file rotation via lumberjack.
package logger

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	serial "github.com/genilink/go-serial-transport"
	"github.com/genilink/go-serial-transport/config"
)

// New constructs a zap logger from the log section of the configuration.
// When cfg.File is set, output is rotated there in addition to stderr.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	sink := zapcore.AddSync(os.Stderr)
	if cfg.File != "" {
		rotated := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		})
		sink = zapcore.NewMultiWriteSyncer(sink, rotated)
	}

	core := zapcore.NewCore(encoder, sink, level)
	return zap.New(core), nil
}

// NewReporter adapts a zap logger into the transport's diagnostic sink.
// Syscall errnos are logged as a numeric field alongside the operation.
func NewReporter(l *zap.Logger) serial.Reporter {
	return serial.ReporterFunc(func(op string, err error) {
		fields := []zap.Field{zap.String("op", op), zap.Error(err)}
		var errno syscall.Errno
		if errors.As(err, &errno) {
			fields = append(fields, zap.Int("errno", int(errno)))
		}
		l.Warn("serial failure", fields...)
	})
}

// DumpHex renders buf as a classic 16-bytes-per-row hex dump and logs it
// at debug level. Useful for tracing raw traffic next to the decoder.
func DumpHex(l *zap.Logger, label string, buf []byte) {
	if !l.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	var b strings.Builder
	for i := 0; i < len(buf); i += 16 {
		end := i + 16
		if end > len(buf) {
			end = len(buf)
		}
		fmt.Fprintf(&b, "%04x ", i)
		for _, c := range buf[i:end] {
			fmt.Fprintf(&b, " %02x", c)
		}
		b.WriteByte('\n')
	}
	l.Debug("hex dump", zap.String("label", label), zap.String("bytes", b.String()))
}
