package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Config captures logging configuration options.
type Config struct {
	Level string
	Dir   string
	File  string
}

const (
	colorReset = "\x1b[0m"
	colorTime  = "\x1b[90m"
	colorDebug = "\x1b[36m"
	colorInfo  = "\x1b[32m"
	colorWarn  = "\x1b[33m"
	colorError = "\x1b[31m"
)

// Tag colors for module-prefixed messages, e.g. "[VISION] ...".
var tagColors = map[string]string{
	"BOOT":   "\x1b[96m",
	"HTTP":   "\x1b[95m",
	"WS":     "\x1b[92m",
	"VISION": "\x1b[34m",
	"TTS":    "\x1b[35m",
	"IMAGE":  "\x1b[94m",
	"STORE":  "\x1b[36m",
}

// Logger wraps slog with printf-style helpers and module tags.
type Logger struct {
	slogger *slog.Logger
	file    *os.File
}

// DefaultLogger is used where no explicit logger is injected.
var DefaultLogger = mustConsole()

func mustConsole() *Logger {
	l, _ := New(Config{Level: "info"})
	return l
}

// New builds a Logger writing colored text to stdout and, when Dir is set,
// plain text to a rotating-by-name file under Dir.
func New(cfg Config) (*Logger, error) {
	level := parseLevel(cfg.Level)

	writers := []io.Writer{os.Stdout}
	var file *os.File
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		name := cfg.File
		if name == "" {
			name = "visionlex.log"
		}
		f, err := os.OpenFile(filepath.Join(cfg.Dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		writers = append(writers, f)
	}

	handler := &textHandler{
		writer: io.MultiWriter(writers...),
		level:  level,
		color:  file == nil,
	}
	return &Logger{
		slogger: slog.New(handler),
		file:    file,
	}, nil
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) Debug(format string, args ...any) { l.slogger.Debug(fmt.Sprintf(format, args...)) }
func (l *Logger) Info(format string, args ...any)  { l.slogger.Info(fmt.Sprintf(format, args...)) }
func (l *Logger) Warn(format string, args ...any)  { l.slogger.Warn(fmt.Sprintf(format, args...)) }
func (l *Logger) Error(format string, args ...any) { l.slogger.Error(fmt.Sprintf(format, args...)) }

func (l *Logger) DebugTag(tag, format string, args ...any) {
	l.slogger.Debug(fmt.Sprintf("[%s] %s", tag, fmt.Sprintf(format, args...)))
}

func (l *Logger) InfoTag(tag, format string, args ...any) {
	l.slogger.Info(fmt.Sprintf("[%s] %s", tag, fmt.Sprintf(format, args...)))
}

func (l *Logger) WarnTag(tag, format string, args ...any) {
	l.slogger.Warn(fmt.Sprintf("[%s] %s", tag, fmt.Sprintf(format, args...)))
}

func (l *Logger) ErrorTag(tag, format string, args ...any) {
	l.slogger.Error(fmt.Sprintf("[%s] %s", tag, fmt.Sprintf(format, args...)))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// textHandler renders one-line log records with optional ANSI colors.
type textHandler struct {
	writer io.Writer
	level  slog.Level
	color  bool
	mu     sync.Mutex
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	timeStr := r.Time.Format("2006-01-02 15:04:05.000")
	levelStr := strings.ToUpper(r.Level.String())
	msg := r.Message

	if !h.color {
		_, err := fmt.Fprintf(h.writer, "[%s] [%s] %s\n", timeStr, levelStr, msg)
		return err
	}

	levelColor := colorInfo
	switch r.Level {
	case slog.LevelDebug:
		levelColor = colorDebug
	case slog.LevelWarn:
		levelColor = colorWarn
	case slog.LevelError:
		levelColor = colorError
	}

	if tag, rest, ok := splitTag(msg); ok {
		if tc, known := tagColors[tag]; known {
			msg = fmt.Sprintf("%s[%s]%s %s", tc, tag, colorReset, rest)
		}
	}

	_, err := fmt.Fprintf(
		h.writer,
		"%s[%s]%s %s[%s]%s %s\n",
		colorTime, timeStr, colorReset,
		levelColor, levelStr, colorReset,
		msg,
	)
	return err
}

func (h *textHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *textHandler) WithGroup(string) slog.Handler      { return h }

func splitTag(msg string) (tag, rest string, ok bool) {
	if !strings.HasPrefix(msg, "[") {
		return "", msg, false
	}
	end := strings.Index(msg, "]")
	if end < 1 {
		return "", msg, false
	}
	return msg[1:end], strings.TrimPrefix(msg[end+1:], " "), true
}

// Timestamp returns the wall-clock format shared by startup banners.
func Timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05.000")
}
