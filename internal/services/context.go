package services

import "context"

type contextKey string

const (
	runIDKey contextKey = "run_id"
	shardKey contextKey = "shard"
	guestKey contextKey = "guest"
	passKey  contextKey = "pass"
)

// WithRunID annotates context with the run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithShard annotates context with the enrichment shard number.
func WithShard(ctx context.Context, shard int) context.Context {
	return context.WithValue(ctx, shardKey, shard)
}

// ShardFromContext extracts the shard number if present.
func ShardFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(shardKey).(int)
	return v, ok
}

// WithGuest annotates context with the guest slug being processed.
func WithGuest(ctx context.Context, slug string) context.Context {
	if slug == "" {
		return ctx
	}
	return context.WithValue(ctx, guestKey, slug)
}

// GuestFromContext returns the guest slug if present.
func GuestFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(guestKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPass annotates context with the reconciliation pass name.
func WithPass(ctx context.Context, pass string) context.Context {
	if pass == "" {
		return ctx
	}
	return context.WithValue(ctx, passKey, pass)
}

// PassFromContext returns the pass name if present.
func PassFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(passKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
