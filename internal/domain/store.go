package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ListingStore persists listing snapshots. The engine's in-memory registry is
// authoritative while the process runs; the store is the durable copy that a
// replacement process restores from.
type ListingStore interface {
	Upsert(ctx context.Context, listing Listing) error
	Delete(ctx context.Context, key ListingKey) error
	Get(ctx context.Context, key ListingKey) (Listing, error)
	ListLive(ctx context.Context, opts ListOpts) ([]Listing, error)
	ListAll(ctx context.Context) ([]Listing, error)
	Count(ctx context.Context) (int64, error)
}

// StateStore persists the marketplace singleton row (owner, custody address,
// listing count, initialize guard).
type StateStore interface {
	Save(ctx context.Context, state MarketplaceState) error
	Load(ctx context.Context) (MarketplaceState, error)
}

// EventStore persists the append-only notification log.
type EventStore interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context, opts ListOpts) ([]Event, error)
	ListByListing(ctx context.Context, key ListingKey, opts ListOpts) ([]Event, error)
	ListBefore(ctx context.Context, before time.Time, limit int) ([]Event, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
