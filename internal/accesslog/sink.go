package accesslog

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// Message is the constant human-readable message attached to every
// access-log event; the flat record carries the machine-readable payload.
const Message = "request processed"

// Sink receives one finished flat record per request. Implementations hand
// the record to a structured-logging backend; delivery is best-effort and
// must never fail the request.
type Sink interface {
	Log(ctx context.Context, level slog.Level, flat FlatRecord)
}

// SlogSink emits flat records through a slog logger, typically backed by a
// JSON handler.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a sink over the given slog logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

// Log emits the record fields plus a "level" field naming the chosen
// severity in pipeline form.
func (s *SlogSink) Log(ctx context.Context, level slog.Level, flat FlatRecord) {
	attrs := Attrs(flat)
	attrs = append(attrs, slog.String("level", LevelName(level)))
	s.logger.LogAttrs(ctx, level, Message, attrs...)
}

// ZerologSink emits flat records through a zerolog logger, for deployments
// standardized on zerolog rather than slog.
type ZerologSink struct {
	logger zerolog.Logger
}

// NewZerologSink creates a sink over the given zerolog logger.
func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return &ZerologSink{logger: logger}
}

// Log emits the record at the zerolog level corresponding to the chosen
// severity.
func (s *ZerologSink) Log(ctx context.Context, level slog.Level, flat FlatRecord) {
	event := s.logger.WithLevel(zerologLevel(level)).Ctx(ctx)
	for key, val := range flat {
		switch v := val.(type) {
		case String:
			event = event.Str(key, string(v))
		case Int:
			event = event.Int64(key, int64(v))
		case Float:
			event = event.Float64(key, float64(v))
		case Bool:
			event = event.Bool(key, bool(v))
		}
	}
	// zerolog emits its own "level" field, so no explicit one is added.
	event.Msg(Message)
}

func zerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level >= slog.LevelError:
		return zerolog.ErrorLevel
	case level >= slog.LevelWarn:
		return zerolog.WarnLevel
	case level >= slog.LevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}
