package domain

import "errors"

// Infrastructure-level sentinels used by the store and cache layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
)

// Marketplace precondition rejections. Every engine operation either succeeds
// in full or aborts with one of these, leaving no state change behind.
var (
	ErrNotTokenOwner       = errors.New("caller does not own or hold enough of the token")
	ErrNotApproved         = errors.New("marketplace is not approved to transfer the token")
	ErrInvalidPrice        = errors.New("price must be greater than zero")
	ErrInvalidQuantity     = errors.New("invalid token quantity")
	ErrInvalidKind         = errors.New("invalid token kind")
	ErrDuplicateListing    = errors.New("token is already listed")
	ErrNoSuchListing       = errors.New("no such listing")
	ErrAlreadySold         = errors.New("listing already sold")
	ErrListingPaused       = errors.New("listing is paused")
	ErrNotSeller           = errors.New("caller is not the seller")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrAlreadyInitialized  = errors.New("marketplace already initialized")
	ErrNotInitialized      = errors.New("marketplace not initialized")
	ErrTransferRejected    = errors.New("token transfer rejected")
	ErrInsufficientFunds   = errors.New("insufficient funds")
)
