package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/nftmarket/internal/domain"
	"github.com/redis/go-redis/v9"
)

const listingTTL = 5 * time.Minute

// ListingCache implements domain.ListingCache using JSON-serialized listings
// keyed by contract address and token ID.
//
// Key schema:
//
//	listing:{contract}:{tokenID} - JSON-encoded Listing
//	listing:count                - number of live listings
type ListingCache struct {
	rdb *redis.Client
}

// NewListingCache creates a ListingCache backed by the given Client.
func NewListingCache(c *Client) *ListingCache {
	return &ListingCache{rdb: c.Underlying()}
}

func listingKey(key domain.ListingKey) string {
	return "listing:" + key.Contract.Hex() + ":" + strconv.FormatUint(key.TokenID, 10)
}

const listingCountKey = "listing:count"

// Set stores a listing in the cache with a 5-minute TTL.
func (lc *ListingCache) Set(ctx context.Context, listing domain.Listing) error {
	data, err := json.Marshal(listing)
	if err != nil {
		return fmt.Errorf("redis: marshal listing %s/%d: %w", listing.Contract.Hex(), listing.TokenID, err)
	}

	if err := lc.rdb.Set(ctx, listingKey(listing.Key()), data, listingTTL).Err(); err != nil {
		return fmt.Errorf("redis: set listing %s/%d: %w", listing.Contract.Hex(), listing.TokenID, err)
	}
	return nil
}

// Get retrieves a listing by its key.
// It returns domain.ErrNotFound when the key does not exist.
func (lc *ListingCache) Get(ctx context.Context, key domain.ListingKey) (domain.Listing, error) {
	data, err := lc.rdb.Get(ctx, listingKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Listing{}, domain.ErrNotFound
		}
		return domain.Listing{}, fmt.Errorf("redis: get listing %s/%d: %w", key.Contract.Hex(), key.TokenID, err)
	}

	var listing domain.Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		return domain.Listing{}, fmt.Errorf("redis: unmarshal listing %s/%d: %w", key.Contract.Hex(), key.TokenID, err)
	}
	return listing, nil
}

// Invalidate removes a listing from the cache.
func (lc *ListingCache) Invalidate(ctx context.Context, key domain.ListingKey) error {
	if err := lc.rdb.Del(ctx, listingKey(key)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate listing %s/%d: %w", key.Contract.Hex(), key.TokenID, err)
	}
	return nil
}

// SetCount stores the live listing count with the same TTL as listings.
func (lc *ListingCache) SetCount(ctx context.Context, count uint64) error {
	if err := lc.rdb.Set(ctx, listingCountKey, count, listingTTL).Err(); err != nil {
		return fmt.Errorf("redis: set listing count: %w", err)
	}
	return nil
}

// GetCount retrieves the cached live listing count.
// It returns domain.ErrNotFound when no count has been cached.
func (lc *ListingCache) GetCount(ctx context.Context) (uint64, error) {
	val, err := lc.rdb.Get(ctx, listingCountKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("redis: get listing count: %w", err)
	}

	count, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis: parse listing count %q: %w", val, err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.ListingCache = (*ListingCache)(nil)
