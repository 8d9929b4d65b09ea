// Package market implements the listing registry and settlement engine: the
// custodial listing lifecycle (create, update, pause, buy, remove) with
// all-or-nothing semantics over the custody adapters and the value ledger.
package market

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/alanyoungcy/nftmarket/internal/custody"
	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// ReceiptSigner produces a signed settlement receipt attached to sale events.
// Optional; a nil signer simply yields events without receipts.
type ReceiptSigner interface {
	SignReceipt(contract common.Address, tokenID uint64, buyer common.Address, price *big.Int) ([]byte, error)
}

// Engine owns the listing registry and executes the five public operations.
// Every operation runs fully serialized behind a single mutex: all validation
// happens before any mutation, and a rejected precondition or failed transfer
// leaves no state change behind.
type Engine struct {
	mu sync.Mutex

	adapters *custody.Registry
	ledger   *Ledger
	custody  common.Address

	owner       common.Address
	initialized bool
	listings    map[domain.ListingKey]domain.Listing
	count       uint64

	signer ReceiptSigner
	logger *slog.Logger
}

// NewEngine creates an uninitialized engine. The custody address is the
// account that holds escrowed assets and accrued overpayments; it must be
// registered as an approved operator with the token contracts by the sellers.
func NewEngine(adapters *custody.Registry, ledger *Ledger, custodyAddr common.Address, signer ReceiptSigner, logger *slog.Logger) *Engine {
	return &Engine{
		adapters: adapters,
		ledger:   ledger,
		custody:  custodyAddr,
		listings: make(map[domain.ListingKey]domain.Listing),
		signer:   signer,
		logger:   logger.With(slog.String("component", "engine")),
	}
}

// Initialize sets the marketplace owner and zeroes the listing counter. It
// succeeds exactly once for the life of the stored state: a second call, by
// anyone, fails with domain.ErrAlreadyInitialized — including after a restart
// restored from a persisted snapshot.
func (e *Engine) Initialize(owner common.Address) (domain.MarketplaceState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return domain.MarketplaceState{}, domain.ErrAlreadyInitialized
	}
	e.owner = owner
	e.initialized = true
	e.count = 0

	e.logger.Info("marketplace initialized",
		slog.String("owner", owner.Hex()),
		slog.String("custody", e.custody.Hex()),
	)
	return e.stateLocked(), nil
}

// Restore loads a persisted snapshot into a fresh engine. It is how a
// replacement process inherits storage: the initialize guard, owner, counter,
// and every live or sold listing survive the swap.
func (e *Engine) Restore(state domain.MarketplaceState, listings []domain.Listing) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized || len(e.listings) > 0 {
		return fmt.Errorf("market: restore on a non-fresh engine")
	}

	e.owner = state.Owner
	e.initialized = state.Initialized
	e.count = 0
	for _, l := range listings {
		if l.Absent() {
			continue
		}
		e.listings[l.Key()] = l
		if l.Live() {
			e.count++
		}
	}
	if e.count != state.ListingCount {
		return fmt.Errorf("market: restored count %d does not match stored count %d", e.count, state.ListingCount)
	}
	return nil
}

// Owner returns the marketplace owner set by Initialize.
func (e *Engine) Owner() common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.owner
}

// CustodyAddress returns the escrow account address.
func (e *Engine) CustodyAddress() common.Address {
	return e.custody
}

// Ledger returns the native-currency ledger.
func (e *Engine) Ledger() *Ledger {
	return e.ledger
}

// ListingCount returns the number of live (listed, unsold) listings.
func (e *Engine) ListingCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// Listing returns the record for a listing key, including sold records.
// Absent keys return domain.ErrNoSuchListing.
func (e *Engine) Listing(contract common.Address, tokenID uint64) (domain.Listing, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.listings[domain.ListingKey{Contract: contract, TokenID: tokenID}]
	if !ok {
		return domain.Listing{}, domain.ErrNoSuchListing
	}
	return l, nil
}

// Listings returns a copy of every record in the registry, sold included.
func (e *Engine) Listings() []domain.Listing {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.Listing, 0, len(e.listings))
	for _, l := range e.listings {
		out = append(out, l)
	}
	return out
}

// State returns the current marketplace singleton state.
func (e *Engine) State() domain.MarketplaceState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Engine) stateLocked() domain.MarketplaceState {
	return domain.MarketplaceState{
		Owner:        e.owner,
		Custody:      e.custody,
		ListingCount: e.count,
		Initialized:  e.initialized,
		UpdatedAt:    time.Now().UTC(),
	}
}

// CreateRequest carries the createListing inputs.
type CreateRequest struct {
	Contract common.Address
	TokenID  uint64
	Seller   common.Address
	Price    *big.Int
	Kind     domain.TokenKind
	Quantity uint64
}

// CreateListing escrows the asset with the custody account and records a new
// listing. Preconditions are checked in a fixed order, first failure wins:
// caller holds the asset, caller approved the custody account, price > 0,
// quantity > 0, kind supported, quantity == 1 for the unique kind, and the
// key is currently absent.
func (e *Engine) CreateListing(req CreateRequest) (domain.Listing, domain.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return domain.Listing{}, domain.Event{}, domain.ErrNotInitialized
	}

	adapter, err := e.adapters.AdapterFor(req.Contract)
	if err != nil {
		return domain.Listing{}, domain.Event{}, err
	}

	holds, err := adapter.Holds(req.Seller, req.TokenID, req.Quantity)
	if err != nil {
		return domain.Listing{}, domain.Event{}, fmt.Errorf("%w: %v", domain.ErrNotTokenOwner, err)
	}
	if !holds {
		return domain.Listing{}, domain.Event{}, domain.ErrNotTokenOwner
	}

	authorized, err := adapter.IsAuthorized(req.Seller, e.custody, req.TokenID)
	if err != nil {
		return domain.Listing{}, domain.Event{}, fmt.Errorf("%w: %v", domain.ErrNotApproved, err)
	}
	if !authorized {
		return domain.Listing{}, domain.Event{}, domain.ErrNotApproved
	}

	if req.Price == nil || req.Price.Sign() <= 0 {
		return domain.Listing{}, domain.Event{}, domain.ErrInvalidPrice
	}
	if req.Quantity == 0 {
		return domain.Listing{}, domain.Event{}, domain.ErrInvalidQuantity
	}
	if !req.Kind.Valid() || req.Kind != adapter.Kind() {
		return domain.Listing{}, domain.Event{}, domain.ErrInvalidKind
	}
	if req.Kind == domain.KindUnique && req.Quantity != 1 {
		return domain.Listing{}, domain.Event{}, domain.ErrInvalidQuantity
	}

	key := domain.ListingKey{Contract: req.Contract, TokenID: req.TokenID}
	if _, exists := e.listings[key]; exists {
		return domain.Listing{}, domain.Event{}, domain.ErrDuplicateListing
	}

	// Escrow the asset with the custody account. A rejected transfer is a
	// precondition failure: nothing has been mutated yet.
	if err := adapter.Transfer(e.custody, req.Seller, e.custody, req.TokenID, req.Quantity); err != nil {
		return domain.Listing{}, domain.Event{}, err
	}

	now := time.Now().UTC()
	listing := domain.Listing{
		Contract:  req.Contract,
		TokenID:   req.TokenID,
		Seller:    req.Seller,
		Price:     new(big.Int).Set(req.Price),
		Kind:      req.Kind,
		Quantity:  req.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	e.listings[key] = listing
	e.count++

	e.logger.Info("listing created",
		slog.String("contract", req.Contract.Hex()),
		slog.Uint64("token_id", req.TokenID),
		slog.String("seller", req.Seller.Hex()),
		slog.String("kind", req.Kind.String()),
		slog.Uint64("quantity", req.Quantity),
	)

	event := e.newEvent(domain.EventListingCreated, listing)
	return listing, event, nil
}

// UpdateListing changes the price of an unsold listing. Seller only.
func (e *Engine) UpdateListing(contract common.Address, tokenID uint64, caller common.Address, newPrice *big.Int) (domain.Listing, domain.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := domain.ListingKey{Contract: contract, TokenID: tokenID}
	listing, ok := e.listings[key]
	if !ok {
		return domain.Listing{}, domain.Event{}, domain.ErrNoSuchListing
	}
	if listing.Sold {
		return domain.Listing{}, domain.Event{}, domain.ErrAlreadySold
	}
	if caller != listing.Seller {
		return domain.Listing{}, domain.Event{}, domain.ErrNotSeller
	}
	if newPrice == nil || newPrice.Sign() <= 0 {
		return domain.Listing{}, domain.Event{}, domain.ErrInvalidPrice
	}

	listing.Price = new(big.Int).Set(newPrice)
	listing.UpdatedAt = time.Now().UTC()
	e.listings[key] = listing

	event := e.newEvent(domain.EventListingUpdated, listing)
	return listing, event, nil
}

// PauseUnpauseListing sets the paused flag of an unsold listing. Seller only.
// The counter is unaffected: a paused listing is still live.
func (e *Engine) PauseUnpauseListing(contract common.Address, tokenID uint64, caller common.Address, pause bool) (domain.Listing, domain.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := domain.ListingKey{Contract: contract, TokenID: tokenID}
	listing, ok := e.listings[key]
	if !ok {
		return domain.Listing{}, domain.Event{}, domain.ErrNoSuchListing
	}
	if listing.Sold {
		return domain.Listing{}, domain.Event{}, domain.ErrAlreadySold
	}
	if caller != listing.Seller {
		return domain.Listing{}, domain.Event{}, domain.ErrNotSeller
	}

	listing.Paused = pause
	listing.UpdatedAt = time.Now().UTC()
	e.listings[key] = listing

	event := e.newEvent(domain.EventListingPausedUnpaused, listing)
	event.Paused = pause
	return listing, event, nil
}

// BuyListedNFT settles a sale: the buyer's attached value pays the seller and
// custody of the asset moves to the buyer, atomically. Value at or above the
// asking price is accepted; the excess is not refunded and accrues to the
// custody account. The registry is committed first, then the value leg parks
// the attached value in custody escrow, and only then does the asset leg run:
// unwinding a capture stays inside the ledger and cannot fail, so a rejected
// leg always rolls back completely and no observer can see a half-updated
// listing.
func (e *Engine) BuyListedNFT(contract common.Address, tokenID uint64, buyer common.Address, value *big.Int) (domain.Listing, domain.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := domain.ListingKey{Contract: contract, TokenID: tokenID}
	listing, ok := e.listings[key]
	if !ok {
		return domain.Listing{}, domain.Event{}, domain.ErrNoSuchListing
	}
	if listing.Sold {
		return domain.Listing{}, domain.Event{}, domain.ErrAlreadySold
	}
	if listing.Paused {
		return domain.Listing{}, domain.Event{}, domain.ErrListingPaused
	}
	if value == nil || value.Cmp(listing.Price) < 0 {
		return domain.Listing{}, domain.Event{}, domain.ErrInsufficientPayment
	}
	if !e.ledger.Covers(buyer, value) {
		return domain.Listing{}, domain.Event{}, domain.ErrInsufficientFunds
	}

	adapter, err := e.adapters.AdapterFor(contract)
	if err != nil {
		return domain.Listing{}, domain.Event{}, err
	}

	// Commit the registry first, then perform the transfers.
	prev := listing
	listing.Sold = true
	listing.Paused = false
	listing.UpdatedAt = time.Now().UTC()
	e.listings[key] = listing
	e.count--

	// Value leg: park the attached value with custody. The buyer's balance
	// may have been withdrawn since the Covers check, so Capture re-checks
	// atomically.
	if err := e.ledger.Capture(buyer, e.custody, value); err != nil {
		e.listings[key] = prev
		e.count++
		return domain.Listing{}, domain.Event{}, err
	}
	// Asset leg. The escrowed value is still with custody, so the unwind is a
	// plain ledger refund.
	if err := adapter.Transfer(e.custody, e.custody, buyer, tokenID, listing.Quantity); err != nil {
		if refundErr := e.ledger.Refund(e.custody, buyer, value); refundErr != nil {
			e.logger.Error("escrow refund failed",
				slog.String("contract", contract.Hex()),
				slog.Uint64("token_id", tokenID),
				slog.String("error", refundErr.Error()),
			)
		}
		e.listings[key] = prev
		e.count++
		return domain.Listing{}, domain.Event{}, err
	}
	// Pay the seller the price; the excess stays with custody. The escrow
	// account is not externally withdrawable, so this cannot come up short.
	if err := e.ledger.Release(e.custody, listing.Seller, listing.Price); err != nil {
		e.logger.Error("seller payout failed",
			slog.String("contract", contract.Hex()),
			slog.Uint64("token_id", tokenID),
			slog.String("error", err.Error()),
		)
	}

	e.logger.Info("listing sold",
		slog.String("contract", contract.Hex()),
		slog.Uint64("token_id", tokenID),
		slog.String("buyer", buyer.Hex()),
		slog.String("price", listing.Price.String()),
	)

	event := e.newEvent(domain.EventListingSold, listing)
	event.Buyer = buyer
	if e.signer != nil {
		receipt, err := e.signer.SignReceipt(contract, tokenID, buyer, listing.Price)
		if err != nil {
			e.logger.Warn("receipt signing failed",
				slog.String("contract", contract.Hex()),
				slog.Uint64("token_id", tokenID),
				slog.String("error", err.Error()),
			)
		} else {
			event.Receipt = receipt
		}
	}
	return listing, event, nil
}

// RemoveListing returns the escrowed asset to the seller and frees the key
// for a future listing. Seller only, pre-sale only.
func (e *Engine) RemoveListing(contract common.Address, tokenID uint64, caller common.Address) (domain.Listing, domain.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := domain.ListingKey{Contract: contract, TokenID: tokenID}
	listing, ok := e.listings[key]
	if !ok {
		return domain.Listing{}, domain.Event{}, domain.ErrNoSuchListing
	}
	if listing.Sold {
		return domain.Listing{}, domain.Event{}, domain.ErrAlreadySold
	}
	if caller != listing.Seller {
		return domain.Listing{}, domain.Event{}, domain.ErrNotSeller
	}

	adapter, err := e.adapters.AdapterFor(contract)
	if err != nil {
		return domain.Listing{}, domain.Event{}, err
	}

	// Commit the deletion, then release escrow; restore on rejection.
	delete(e.listings, key)
	e.count--

	if err := adapter.Transfer(e.custody, e.custody, listing.Seller, tokenID, listing.Quantity); err != nil {
		e.listings[key] = listing
		e.count++
		return domain.Listing{}, domain.Event{}, err
	}

	e.logger.Info("listing removed",
		slog.String("contract", contract.Hex()),
		slog.Uint64("token_id", tokenID),
		slog.String("seller", listing.Seller.Hex()),
	)

	event := e.newEvent(domain.EventListingRemoved, listing)
	return listing, event, nil
}

func (e *Engine) newEvent(typ domain.EventType, l domain.Listing) domain.Event {
	return domain.Event{
		ID:        uuid.New().String(),
		Type:      typ,
		Contract:  l.Contract,
		TokenID:   l.TokenID,
		Seller:    l.Seller,
		Kind:      l.Kind,
		Quantity:  l.Quantity,
		Price:     new(big.Int).Set(l.Price),
		CreatedAt: time.Now().UTC(),
	}
}
