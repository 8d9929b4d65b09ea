// Package domain defines the marketplace's core types, store and cache
// interfaces, and sentinel errors shared by every other package.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TokenKind identifies the asset standard a listing was created under. It is
// immutable for the life of the listing.
type TokenKind uint8

const (
	// KindUnique is an ERC-721 style asset: each token id has exactly one
	// holder and a transfer always moves the whole unit.
	KindUnique TokenKind = 1
	// KindFungible is an ERC-1155 style asset: an address holds a quantity
	// of a token id and a transfer moves an arbitrary sub-quantity.
	KindFungible TokenKind = 2
)

// Valid reports whether k is one of the supported standards.
func (k TokenKind) Valid() bool {
	return k == KindUnique || k == KindFungible
}

func (k TokenKind) String() string {
	switch k {
	case KindUnique:
		return "erc721"
	case KindFungible:
		return "erc1155"
	default:
		return "unknown"
	}
}

// ListingKey uniquely identifies one listing slot.
type ListingKey struct {
	Contract common.Address `json:"contract"`
	TokenID  uint64         `json:"token_id"`
}

// Listing is a single custodial listing. The zero-address Seller is the
// sentinel for "no listing".
type Listing struct {
	Contract  common.Address `json:"contract"`
	TokenID   uint64         `json:"token_id"`
	Seller    common.Address `json:"seller"`
	Price     *big.Int       `json:"price"` // native currency, wei
	Kind      TokenKind      `json:"kind"`
	Quantity  uint64         `json:"quantity"`
	Paused    bool           `json:"paused"`
	Sold      bool           `json:"sold"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Key returns the composite listing key.
func (l Listing) Key() ListingKey {
	return ListingKey{Contract: l.Contract, TokenID: l.TokenID}
}

// Absent reports whether the record is the empty sentinel.
func (l Listing) Absent() bool {
	return l.Seller == (common.Address{})
}

// Live reports whether the listing counts toward the active listing count:
// present and not yet sold. A paused listing is still live.
func (l Listing) Live() bool {
	return !l.Absent() && !l.Sold
}

// MarketplaceState is the registry-wide singleton row: the marketplace owner
// set by Initialize, the custody address holding escrowed assets, and the
// live listing counter.
type MarketplaceState struct {
	Owner        common.Address `json:"owner"`
	Custody      common.Address `json:"custody"`
	ListingCount uint64         `json:"listing_count"`
	Initialized  bool           `json:"initialized"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
