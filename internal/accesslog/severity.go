package accesslog

import "log/slog"

// SeverityFor derives the base emission severity from the response status:
// 5xx → error, 4xx → warning, anything else → info. The debug override, if
// any, is applied by the caller after classification.
func SeverityFor(status int) slog.Level {
	switch status / 100 {
	case 5:
		return slog.LevelError
	case 4:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// LevelName renders a severity the way log pipelines expect it ("warning",
// not slog's "WARN").
func LevelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warning"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
