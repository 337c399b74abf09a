package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"

	"github.com/maxviazov/revision-history-service/internal/logger"
)

// pgxLogger routes pgx trace events into zerolog.
type pgxLogger struct {
	logger zerolog.Logger
}

func newPgxLogger(l zerolog.Logger) *pgxLogger {
	return &pgxLogger{logger: logger.Component(l, "pgx")}
}

// Log implements tracelog.Logger. SQL text and arguments are only attached
// when the global level is trace.
func (l *pgxLogger) Log(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	var event *zerolog.Event
	switch level {
	case tracelog.LogLevelNone:
		return
	case tracelog.LogLevelTrace:
		event = l.logger.Trace()
	case tracelog.LogLevelDebug:
		event = l.logger.Debug()
	case tracelog.LogLevelInfo:
		event = l.logger.Info()
	case tracelog.LogLevelWarn:
		event = l.logger.Warn()
	case tracelog.LogLevelError:
		event = l.logger.Error()
	default:
		event = l.logger.Info().Str("pgx_log_level", level.String())
	}

	verbose := zerolog.GlobalLevel() <= zerolog.TraceLevel
	fields := make(map[string]any, len(data))
	for k, v := range data {
		if (k == "sql" || k == "args") && !verbose {
			continue
		}
		fields[k] = v
	}
	event.Fields(fields).Msg(msg)
}
