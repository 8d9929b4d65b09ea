package domain

import (
	"context"
	"time"
)

// ListingCache provides fast listing lookups in front of the ListingStore.
type ListingCache interface {
	Set(ctx context.Context, listing Listing) error
	Get(ctx context.Context, key ListingKey) (Listing, error)
	Invalidate(ctx context.Context, key ListingKey) error
	SetCount(ctx context.Context, count uint64) error
	GetCount(ctx context.Context) (uint64, error)
}

// RateLimiter provides distributed rate limiting for the API surface.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus fans marketplace events out to interested consumers (the
// websocket hub, external subscribers) and keeps a bounded durable stream.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
