package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"habitLoopAPI/internal/config"
)

// Init installs a JSON slog logger as the default. Output goes to stdout and,
// when cfg.File is set, to a rotated file as well.
func Init(cfg config.LogConfig) {
	writers := []io.Writer{os.Stdout}
	if cfg.File != "" {
		writers = append(writers, rotating(cfg, cfg.File))
	}

	h := slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: ParseLevel(cfg.Level)})
	slog.SetDefault(slog.New(h))
	slog.Info("logger initialized", "level", cfg.Level, "file", cfg.File)
}

// AccessLog returns the writer HTTP access logs are written to.
func AccessLog(cfg config.LogConfig) io.Writer {
	if cfg.AccessLogFile == "" {
		return os.Stdout
	}
	return rotating(cfg, cfg.AccessLogFile)
}

func rotating(cfg config.LogConfig, filename string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		LocalTime:  true,
	}
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
