package custody

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftmarket/internal/asset"
	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// UniqueAdapter exposes an ERC-721 contract through the Adapter capability.
type UniqueAdapter struct {
	token asset.ERC721
}

// NewUniqueAdapter wraps an ERC-721 contract.
func NewUniqueAdapter(token asset.ERC721) *UniqueAdapter {
	return &UniqueAdapter{token: token}
}

// Kind returns domain.KindUnique.
func (a *UniqueAdapter) Kind() domain.TokenKind {
	return domain.KindUnique
}

// Holds reports whether owner is the current holder of tokenID. Quantity is
// part of the capability signature but a unique token is all-or-nothing, so
// it is ignored here; the engine validates the quantity-equals-one rule.
func (a *UniqueAdapter) Holds(owner common.Address, tokenID uint64, quantity uint64) (bool, error) {
	holder, err := a.token.OwnerOf(tokenID)
	if err != nil {
		return false, fmt.Errorf("custody: owner of %d: %w", tokenID, err)
	}
	return holder == owner, nil
}

// IsAuthorized reports whether operator holds the per-token approval or a
// blanket operator approval from owner.
func (a *UniqueAdapter) IsAuthorized(owner, operator common.Address, tokenID uint64) (bool, error) {
	approved, err := a.token.GetApproved(tokenID)
	if err != nil {
		return false, fmt.Errorf("custody: get approved %d: %w", tokenID, err)
	}
	if approved == operator {
		return true, nil
	}
	return a.token.IsApprovedForAll(owner, operator), nil
}

// Transfer moves the whole unit. Quantity must be exactly 1.
func (a *UniqueAdapter) Transfer(operator, from, to common.Address, tokenID uint64, quantity uint64) error {
	if quantity != 1 {
		return fmt.Errorf("%w: unique transfer of quantity %d", domain.ErrTransferRejected, quantity)
	}
	if err := a.token.TransferFrom(operator, from, to, tokenID); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransferRejected, err)
	}
	return nil
}

var _ Adapter = (*UniqueAdapter)(nil)
