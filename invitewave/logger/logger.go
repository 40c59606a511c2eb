package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
)

type LogType string

const (
	TypeScheduler LogType = "SCHED"
	TypeDB        LogType = "DB"
	TypeSystem    LogType = "SYS"
	TypeTask      LogType = "TASK"
	TypeError     LogType = "ERR"
)

type Handler struct {
	opts      *slog.HandlerOptions
	startTime time.Time
	attrs     []slog.Attr
	groups    []string
}

func NewHandler(level slog.Level) *Handler {
	return &Handler{
		opts:      &slog.HandlerOptions{Level: level},
		startTime: time.Now(),
		attrs:     make([]slog.Attr, 0),
		groups:    make([]string, 0),
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		opts:      h.opts,
		startTime: h.startTime,
		attrs:     append(h.attrs, attrs...),
		groups:    h.groups,
	}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		opts:      h.opts,
		startTime: h.startTime,
		attrs:     h.attrs,
		groups:    append(h.groups, name),
	}
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	if shouldSkipLog(&r) {
		return nil
	}

	timestamp := time.Now().Format("15:04:05")

	var levelColor, levelText string
	switch r.Level {
	case slog.LevelDebug:
		levelColor = colorPurple
		levelText = "DEBUG"
	case slog.LevelInfo:
		levelColor = colorGreen
		levelText = "INFO"
	case slog.LevelWarn:
		levelColor = colorYellow
		levelText = "WARN"
	case slog.LevelError:
		levelColor = colorRed
		levelText = "ERROR"
	}

	typeColor := colorBlue
	switch getLogType(&r) {
	case TypeDB:
		typeColor = colorCyan
	case TypeError:
		typeColor = colorRed
	case TypeTask:
		typeColor = colorPurple
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s%-5s%s %s[%s]%s %s",
		timestamp,
		levelColor, levelText, colorReset,
		typeColor, getLogType(&r), colorReset,
		r.Message,
	))

	appendAttr := func(a slog.Attr) bool {
		if a.Key == "type" {
			return true
		}
		sb.WriteString(fmt.Sprintf(" %s=%v", a.Key, a.Value))
		return true
	}
	for _, a := range h.attrs {
		appendAttr(a)
	}
	r.Attrs(appendAttr)

	fmt.Println(sb.String())
	return nil
}

// The gateway layer is chatty at debug level; drop the per-frame noise.
func shouldSkipLog(r *slog.Record) bool {
	skippedMessages := []string{
		"gateway event",
		"sending heartbeat",
		"received gateway message",
		"sending gateway command",
		"new request",
		"new response",
	}

	for _, skip := range skippedMessages {
		if strings.Contains(strings.ToLower(r.Message), skip) {
			return true
		}
	}
	return false
}

func getLogType(r *slog.Record) LogType {
	var logType LogType = TypeSystem
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "type" {
			switch a.Value.String() {
			case "sched":
				logType = TypeScheduler
			case "db":
				logType = TypeDB
			case "task":
				logType = TypeTask
			case "error":
				logType = TypeError
			}
			return false
		}
		return true
	})
	return logType
}
