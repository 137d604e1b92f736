package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/arbor/internal/logging"
)

// configureLogger routes pgx query tracing to the process logger. pgx info
// events are demoted to debug.
func configureLogger(connConfig *pgx.ConnConfig) {
	connConfig.Tracer = &tracelog.TraceLog{
		Logger:   tracelog.LoggerFunc(logPGX),
		LogLevel: tracelog.LogLevelDebug,
	}
}

func logPGX(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	var ev *zerolog.Event
	switch level {
	case tracelog.LogLevelError:
		ev = logging.Logger.Error()
	case tracelog.LogLevelWarn:
		ev = logging.Logger.Warn()
	case tracelog.LogLevelTrace:
		ev = logging.Logger.Trace()
	default:
		ev = logging.Logger.Debug()
	}
	ev.Ctx(ctx).Fields(data).Msg("pgx: " + msg)
}
