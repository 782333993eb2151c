package telemetry

import (
	"log/slog"
	"os"
)

// LogLevel читает уровень логирования из LOG_LEVEL.
// Возможные значения: DEBUG, INFO, WARN, ERROR (default: INFO).
func LogLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger инициализирует глобальный логгер и возвращает его.
//
// LOG_FORMAT управляет форматом вывода:
//   - "json" (по умолчанию) — для production
//   - "text" — человекочитаемый, для разработки
//
// На уровне DEBUG в записи добавляется source-позиция.
func SetupLogger() *slog.Logger {
	level := LogLevel()
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
