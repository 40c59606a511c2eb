package logger

import (
	"log/slog"
	"time"
)

// LogCycle logs one allocation scheduler cycle
func LogCycle(allocated int, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "sched"),
		slog.Int("allocated", allocated),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Allocation cycle failed", append(attrs, slog.Any("error", err))...)
	} else {
		slog.Info("Allocation cycle finished", attrs...)
	}
}

// LogTask logs generation task execution
func LogTask(taskID string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "task"),
		slog.String("task_id", taskID),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Generation task failed", append(attrs, slog.Any("error", err))...)
	} else {
		slog.Info("Generation task completed", attrs...)
	}
}

// LogSystem logs system events
func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogError logs error events
func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}
