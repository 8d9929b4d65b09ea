// Package custody adapts the two supported token standards behind a single
// capability interface the settlement engine calls through. The engine never
// branches on the standard except for the quantity-equals-one rule, which it
// validates itself.
package custody

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// ErrUnknownContract is returned when no adapter is registered for an asset
// contract address.
var ErrUnknownContract = errors.New("custody: unknown asset contract")

// Adapter is the capability set the engine needs from a token standard:
// verify holdings, verify transfer authorization, and move units. No method
// may partially complete; a transfer either moves the full quantity or fails.
type Adapter interface {
	// Kind identifies which standard this adapter speaks.
	Kind() domain.TokenKind

	// Holds reports whether owner currently holds at least quantity units
	// of tokenID (exact ownership for the unique kind).
	Holds(owner common.Address, tokenID uint64, quantity uint64) (bool, error)

	// IsAuthorized reports whether operator may move owner's tokenID.
	IsAuthorized(owner, operator common.Address, tokenID uint64) (bool, error)

	// Transfer moves exactly quantity units of tokenID from one address to
	// another, acting as operator. A rejected transfer surfaces as
	// domain.ErrTransferRejected.
	Transfer(operator, from, to common.Address, tokenID uint64, quantity uint64) error
}
