package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// EventType names one of the marketplace notification events.
type EventType string

const (
	EventListingCreated        EventType = "listing_created"
	EventListingPausedUnpaused EventType = "listing_paused_unpaused"
	EventListingUpdated        EventType = "listing_updated"
	EventListingSold           EventType = "listing_sold"
	EventListingRemoved        EventType = "listing_removed"
)

// Event is one entry of the append-only notification log. Fields that do not
// apply to a given event type are left at their zero value (e.g. Buyer is only
// set on listing_sold, Paused only on listing_paused_unpaused).
type Event struct {
	ID        string         `json:"id"` // UUID
	Type      EventType      `json:"type"`
	Contract  common.Address `json:"contract"`
	TokenID   uint64         `json:"token_id"`
	Seller    common.Address `json:"seller"`
	Buyer     common.Address `json:"buyer,omitempty"`
	Kind      TokenKind      `json:"kind"`
	Quantity  uint64         `json:"quantity"`
	Price     *big.Int       `json:"price,omitempty"`
	Paused    bool           `json:"paused,omitempty"`
	Receipt   []byte         `json:"receipt,omitempty"` // signed settlement receipt, sales only
	CreatedAt time.Time      `json:"created_at"`
}
