package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type LoggerConfig struct {
	Level              string         `mapstructure:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format             string         `mapstructure:"format" validate:"omitempty,oneof=json console"`
	OutputTarget       string         `mapstructure:"output_target" validate:"omitempty,oneof=stdout stderr"`
	TimeField          string         `mapstructure:"time_field"`
	TimeFormat         string         `mapstructure:"time_format" validate:"omitempty,oneof=rfc3339 rfc3339nano unix unix_ms"`
	ServiceName        string         `mapstructure:"service_name"`
	ServiceVersion     string         `mapstructure:"service_version"`
	Env                string         `mapstructure:"env" validate:"omitempty,oneof=dev test staging prod"`
	WithCaller         bool           `mapstructure:"with_caller"`
	Stacktrace         bool           `mapstructure:"stacktrace"`
	StacktraceMinLevel string         `mapstructure:"stacktrace_min_level" validate:"omitempty,oneof=debug info warn error fatal panic"`
	// DebugFile, when set in dev with level debug, receives a copy of every line.
	DebugFile string         `mapstructure:"debug_file"`
	Fields    map[string]any `mapstructure:"fields"`
}

// New builds the root logger. Components derive children with Component.
func New(logg *LoggerConfig) (logger zerolog.Logger, err error) {
	logg.setDefaults()

	v := validator.New()
	if err = v.Struct(logg); err != nil {
		return logger, fmt.Errorf("logger config validation error: %w", err)
	}

	zerolog.TimestampFieldName = logg.TimeField
	zerolog.TimeFieldFormat = timeFormat(logg.TimeFormat)

	logger = zerolog.New(writer(logg)).
		With().
		Timestamp().
		Str("service", logg.ServiceName).
		Str("version", logg.ServiceVersion).
		Str("env", logg.Env).
		Logger()

	if logg.WithCaller {
		logger = logger.With().Caller().Logger()
	}
	if logg.Stacktrace {
		logger = logger.With().Stack().Logger()
	}
	if len(logg.Fields) > 0 {
		logger = logger.With().Fields(logg.Fields).Logger()
	}

	level, err := zerolog.ParseLevel(logg.Level)
	if err != nil {
		return logger, err
	}
	zerolog.SetGlobalLevel(level)

	return logger, nil
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

func writer(logg *LoggerConfig) io.Writer {
	var out io.Writer = os.Stdout
	if logg.OutputTarget == "stderr" {
		out = os.Stderr
	}
	if logg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	if logg.Env != "dev" || logg.Level != "debug" || logg.DebugFile == "" {
		return out
	}
	// a missing log directory only costs us the file copy
	if err := os.MkdirAll(filepath.Dir(logg.DebugFile), 0o755); err != nil {
		return out
	}
	file, err := os.OpenFile(logg.DebugFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return out
	}
	return zerolog.MultiLevelWriter(out, file)
}

func timeFormat(name string) string {
	switch name {
	case "rfc3339":
		return time.RFC3339
	case "unix":
		return zerolog.TimeFormatUnix
	case "unix_ms":
		return zerolog.TimeFormatUnixMs
	default:
		return time.RFC3339Nano
	}
}

func (c *LoggerConfig) setDefaults() {
	if c.Env == "" {
		c.Env = "prod"
	}

	if c.Level == "" {
		if c.Env == "dev" {
			c.Level = "debug"
		} else {
			c.Level = "info"
		}
	}

	if c.Format == "" {
		if c.Env == "dev" {
			c.Format = "console"
		} else {
			c.Format = "json"
		}
	}

	if c.OutputTarget == "" {
		if c.Format == "console" {
			c.OutputTarget = "stderr"
		} else {
			c.OutputTarget = "stdout"
		}
	}

	if c.TimeField == "" {
		c.TimeField = "ts"
	}
	if c.TimeFormat == "" {
		c.TimeFormat = "rfc3339nano"
	}

	if !c.WithCaller && c.Env == "dev" {
		c.WithCaller = true
	}
	if c.StacktraceMinLevel == "" {
		c.StacktraceMinLevel = "error"
	}

	if c.ServiceName == "" {
		c.ServiceName = "revision-history-service"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "0.1.0"
	}
}
