package logger

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
)

type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

var level atomic.Int32

func init() {
	level.Store(int32(LevelInfo))
}

// SetLevel меняет минимальный уровень вывода.
func SetLevel(l Level) {
	level.Store(int32(l))
}

// ParseLevel понимает "debug", "info" и "error"; всё остальное даёт LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func enabled(l Level) bool {
	return int32(l) >= level.Load()
}

func Debug(ctx context.Context, msg string, fields ...any) {
	if !enabled(LevelDebug) {
		return
	}
	log.Printf("[DEBUG] %s%s", msg, formatFields(ctx, fields))
}

func Info(ctx context.Context, msg string, fields ...any) {
	if !enabled(LevelInfo) {
		return
	}
	log.Printf("[INFO] %s%s", msg, formatFields(ctx, fields))
}

// Error пишет сообщение и, если err не nil, саму ошибку после двоеточия.
func Error(ctx context.Context, err error, msg string, fields ...any) {
	if !enabled(LevelError) {
		return
	}
	if err != nil {
		log.Printf("[ERROR] %s: %v%s", msg, err, formatFields(ctx, fields))
		return
	}
	log.Printf("[ERROR] %s%s", msg, formatFields(ctx, fields))
}

type ctxKey struct{}

// WithFields прикрепляет поля к контексту, они попадут в каждую запись с этим ctx.
func WithFields(ctx context.Context, fields ...any) context.Context {
	prev, _ := ctx.Value(ctxKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, ctxKey{}, merged)
}

func formatFields(ctx context.Context, fields []any) string {
	var all []any
	if ctx != nil {
		if fromCtx, ok := ctx.Value(ctxKey{}).([]any); ok {
			all = append(all, fromCtx...)
		}
	}
	all = append(all, fields...)
	if len(all) == 0 {
		return ""
	}

	var b strings.Builder
	for i := 0; i < len(all); i += 2 {
		if i+1 < len(all) {
			fmt.Fprintf(&b, " %v=%v", all[i], all[i+1])
		} else {
			fmt.Fprintf(&b, " %v=?", all[i])
		}
	}
	return b.String()
}
