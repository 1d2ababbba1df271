package slogx

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/tenantauth/pkg/idx"
)

type ctxKey struct{}

func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithOperation tags every log line for one operator command with a fresh
// op_id and the command name.
func WithOperation(ctx context.Context, name string) context.Context {
	l := FromContext(ctx)
	return WithContext(ctx, l.With("op_id", idx.New().String(), "op", name))
}
