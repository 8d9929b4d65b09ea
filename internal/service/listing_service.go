// Package service wires the marketplace engine to its durable stores, cache,
// event log, and notification channels.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftmarket/internal/domain"
	"github.com/alanyoungcy/nftmarket/internal/market"
)

// EventChannel is the pub/sub channel sale and lifecycle events are fanned
// out on, and EventStream the durable stream mirror.
const (
	EventChannel = "marketplace:events"
	EventStream  = "marketplace:events:stream"
)

// EventNotifier delivers operator alerts for marketplace events. The notify
// package's Notifier satisfies it.
type EventNotifier interface {
	NotifyEvent(ctx context.Context, e domain.Event) error
}

// ListingService fronts the engine: it executes operations, persists the
// resulting listing and state snapshots, appends events to the durable log,
// publishes them on the signal bus, and keeps the read cache coherent.
//
// The engine's in-memory registry stays authoritative; store and cache
// failures after a committed operation are logged, not unwound.
type ListingService struct {
	engine   *market.Engine
	listings domain.ListingStore
	state    domain.StateStore
	events   domain.EventStore
	cache    domain.ListingCache
	bus      domain.SignalBus
	notifier EventNotifier
	logger   *slog.Logger
}

// NewListingService creates a ListingService. The cache, bus, and notifier
// are optional; nil disables the corresponding side effect.
func NewListingService(
	engine *market.Engine,
	listings domain.ListingStore,
	state domain.StateStore,
	events domain.EventStore,
	cache domain.ListingCache,
	bus domain.SignalBus,
	notifier EventNotifier,
	logger *slog.Logger,
) *ListingService {
	return &ListingService{
		engine:   engine,
		listings: listings,
		state:    state,
		events:   events,
		cache:    cache,
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "listing_service")),
	}
}

// Boot restores the engine from the durable stores. A missing state row means
// a brand-new deployment: the engine stays uninitialized and waits for
// Initialize. Boot must run before any operation is served.
func (s *ListingService) Boot(ctx context.Context) error {
	state, err := s.state.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.InfoContext(ctx, "no persisted state, awaiting initialize")
			return nil
		}
		return fmt.Errorf("listing_service: load state: %w", err)
	}

	listings, err := s.listings.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("listing_service: load listings: %w", err)
	}

	if err := s.engine.Restore(state, listings); err != nil {
		return fmt.Errorf("listing_service: restore: %w", err)
	}

	s.logger.InfoContext(ctx, "restored marketplace state",
		slog.String("owner", state.Owner.Hex()),
		slog.Uint64("live_listings", state.ListingCount),
		slog.Int("records", len(listings)),
	)
	return nil
}

// Initialize performs the one-time marketplace setup and persists the state
// row so the guard survives restarts.
func (s *ListingService) Initialize(ctx context.Context, owner common.Address) (domain.MarketplaceState, error) {
	state, err := s.engine.Initialize(owner)
	if err != nil {
		return domain.MarketplaceState{}, err
	}

	if err := s.state.Save(ctx, state); err != nil {
		return state, fmt.Errorf("listing_service: save state: %w", err)
	}
	return state, nil
}

// CreateListing escrows an asset and records its listing.
func (s *ListingService) CreateListing(ctx context.Context, req market.CreateRequest) (domain.Listing, error) {
	listing, event, err := s.engine.CreateListing(req)
	if err != nil {
		return domain.Listing{}, err
	}

	s.persistListing(ctx, listing)
	s.emit(ctx, event)
	return listing, nil
}

// UpdateListing changes the asking price of an unsold listing.
func (s *ListingService) UpdateListing(ctx context.Context, contract common.Address, tokenID uint64, caller common.Address, newPrice *big.Int) (domain.Listing, error) {
	listing, event, err := s.engine.UpdateListing(contract, tokenID, caller, newPrice)
	if err != nil {
		return domain.Listing{}, err
	}

	s.persistListing(ctx, listing)
	s.emit(ctx, event)
	return listing, nil
}

// PauseUnpauseListing toggles the paused flag of an unsold listing.
func (s *ListingService) PauseUnpauseListing(ctx context.Context, contract common.Address, tokenID uint64, caller common.Address, pause bool) (domain.Listing, error) {
	listing, event, err := s.engine.PauseUnpauseListing(contract, tokenID, caller, pause)
	if err != nil {
		return domain.Listing{}, err
	}

	s.persistListing(ctx, listing)
	s.emit(ctx, event)
	return listing, nil
}

// BuyListedNFT settles a sale against the buyer's ledger balance.
func (s *ListingService) BuyListedNFT(ctx context.Context, contract common.Address, tokenID uint64, buyer common.Address, value *big.Int) (domain.Listing, error) {
	listing, event, err := s.engine.BuyListedNFT(contract, tokenID, buyer, value)
	if err != nil {
		return domain.Listing{}, err
	}

	s.persistListing(ctx, listing)
	s.emit(ctx, event)
	return listing, nil
}

// RemoveListing returns the escrowed asset to its seller and deletes the
// listing record.
func (s *ListingService) RemoveListing(ctx context.Context, contract common.Address, tokenID uint64, caller common.Address) (domain.Listing, error) {
	listing, event, err := s.engine.RemoveListing(contract, tokenID, caller)
	if err != nil {
		return domain.Listing{}, err
	}

	key := listing.Key()
	if err := s.listings.Delete(ctx, key); err != nil {
		s.logger.ErrorContext(ctx, "listing delete failed",
			slog.String("contract", key.Contract.Hex()),
			slog.Uint64("token_id", key.TokenID),
			slog.String("error", err.Error()),
		)
	}
	s.saveState(ctx)
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "cache invalidate failed",
				slog.String("contract", key.Contract.Hex()),
				slog.Uint64("token_id", key.TokenID),
				slog.String("error", err.Error()),
			)
		}
	}
	s.emit(ctx, event)
	return listing, nil
}

// GetListing retrieves a listing, cache first, store second, engine last.
func (s *ListingService) GetListing(ctx context.Context, contract common.Address, tokenID uint64) (domain.Listing, error) {
	key := domain.ListingKey{Contract: contract, TokenID: tokenID}

	if s.cache != nil {
		if l, err := s.cache.Get(ctx, key); err == nil {
			return l, nil
		}
	}

	listing, err := s.engine.Listing(contract, tokenID)
	if err != nil {
		return domain.Listing{}, err
	}

	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, listing); cacheErr != nil {
			s.logger.WarnContext(ctx, "cache set failed",
				slog.String("contract", contract.Hex()),
				slog.Uint64("token_id", tokenID),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return listing, nil
}

// ListLive returns live listings from the durable store with pagination.
func (s *ListingService) ListLive(ctx context.Context, opts domain.ListOpts) ([]domain.Listing, error) {
	listings, err := s.listings.ListLive(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing_service: list live: %w", err)
	}
	return listings, nil
}

// State returns the current marketplace singleton state.
func (s *ListingService) State() domain.MarketplaceState {
	return s.engine.State()
}

// ListingCount returns the live listing count, preferring the cache.
func (s *ListingService) ListingCount(ctx context.Context) uint64 {
	if s.cache != nil {
		if count, err := s.cache.GetCount(ctx); err == nil {
			return count
		}
	}
	return s.engine.ListingCount()
}

// Deposit credits native currency to an account's ledger balance.
func (s *ListingService) Deposit(account common.Address, amount *big.Int) error {
	return s.engine.Ledger().Deposit(account, amount)
}

// Withdraw debits native currency from an account's ledger balance. The
// custody account is the engine's escrow; draining it externally would break
// the in-flight sale unwind, so it is never withdrawable through the API.
func (s *ListingService) Withdraw(account common.Address, amount *big.Int) error {
	if account == s.engine.CustodyAddress() {
		return domain.ErrUnauthorized
	}
	return s.engine.Ledger().Withdraw(account, amount)
}

// Balance returns an account's ledger balance.
func (s *ListingService) Balance(account common.Address) *big.Int {
	return s.engine.Ledger().Balance(account)
}

// ListEvents returns entries from the durable event log, newest first.
func (s *ListingService) ListEvents(ctx context.Context, opts domain.ListOpts) ([]domain.Event, error) {
	events, err := s.events.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing_service: list events: %w", err)
	}
	return events, nil
}

// persistListing writes the listing snapshot, refreshes the cache entry, and
// saves the state row. Failures are logged; the committed engine operation is
// not unwound.
func (s *ListingService) persistListing(ctx context.Context, listing domain.Listing) {
	if err := s.listings.Upsert(ctx, listing); err != nil {
		s.logger.ErrorContext(ctx, "listing upsert failed",
			slog.String("contract", listing.Contract.Hex()),
			slog.Uint64("token_id", listing.TokenID),
			slog.String("error", err.Error()),
		)
	}
	s.saveState(ctx)

	if s.cache != nil {
		if err := s.cache.Set(ctx, listing); err != nil {
			s.logger.WarnContext(ctx, "cache set failed",
				slog.String("contract", listing.Contract.Hex()),
				slog.Uint64("token_id", listing.TokenID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *ListingService) saveState(ctx context.Context) {
	state := s.engine.State()
	if err := s.state.Save(ctx, state); err != nil {
		s.logger.ErrorContext(ctx, "state save failed",
			slog.String("error", err.Error()),
		)
	}
	if s.cache != nil {
		if err := s.cache.SetCount(ctx, state.ListingCount); err != nil {
			s.logger.WarnContext(ctx, "count cache set failed",
				slog.String("error", err.Error()),
			)
		}
	}
}

// emit appends the event to the durable log, publishes it on the signal bus,
// and forwards it to the notifier.
func (s *ListingService) emit(ctx context.Context, event domain.Event) {
	if err := s.events.Append(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "event append failed",
			slog.String("event_id", event.ID),
			slog.String("type", string(event.Type)),
			slog.String("error", err.Error()),
		)
	}

	if s.bus != nil {
		payload, err := json.Marshal(event)
		if err != nil {
			s.logger.ErrorContext(ctx, "event marshal failed",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()),
			)
			return
		}
		if err := s.bus.Publish(ctx, EventChannel, payload); err != nil {
			s.logger.WarnContext(ctx, "event publish failed",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()),
			)
		}
		if err := s.bus.StreamAppend(ctx, EventStream, payload); err != nil {
			s.logger.WarnContext(ctx, "event stream append failed",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyEvent(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "event notification failed",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
