package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config defines the knobs for building a zap logger aligned with Google Cloud Logging expectations.
type Config struct {
	// Component identifies the emitting subsystem (e.g., "api-server").
	Component string
	// Level controls the minimum severity ("debug", "info", "warn", "error").
	Level string
	// Output defaults to stdout, which Cloud Run forwards to Cloud Logging.
	Output io.Writer
	// Format is "json" (default, Cloud Logging) or "console" for terminals.
	Format string
}

// AlertKey marks entries that describe an operational anomaly rather than a client error.
// Log-based alerting policies match on jsonPayload.alert=true.
const AlertKey = "alert"

// Alert logs msg at error level tagged for alerting.
func Alert(logger *zap.Logger, msg string, fields ...zap.Field) {
	logger.Error(msg, append(fields, zap.Bool(AlertKey, true))...)
}

// NewLogger builds the structured logger. JSON output uses Cloud Logging field names and
// severities; console output is for operators running the CLI.
func NewLogger(cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, err
		}
	}

	encoder, err := newEncoder(cfg.Format)
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stdout
	if cfg.Output != nil {
		out = cfg.Output
	}

	logger := zap.New(zapcore.NewCore(encoder, zapcore.AddSync(out), level), zap.AddCaller())
	if cfg.Component != "" {
		logger = logger.With(zap.String("component", cfg.Component))
	}
	return logger, nil
}

func newEncoder(format string) (zapcore.Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "severity",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
			EncodeDuration: zapcore.MillisDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
			EncodeLevel:    gcpLevelEncoder,
		}), nil
	case "console":
		cfg := zap.NewDevelopmentEncoderConfig()
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		return zapcore.NewConsoleEncoder(cfg), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func gcpLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch l {
	case zapcore.DebugLevel:
		enc.AppendString("DEBUG")
	case zapcore.InfoLevel:
		enc.AppendString("INFO")
	case zapcore.WarnLevel:
		enc.AppendString("WARNING")
	case zapcore.ErrorLevel:
		enc.AppendString("ERROR")
	case zapcore.DPanicLevel, zapcore.PanicLevel:
		enc.AppendString("ALERT")
	case zapcore.FatalLevel:
		enc.AppendString("CRITICAL")
	default:
		enc.AppendString(strings.ToUpper(l.String()))
	}
}
