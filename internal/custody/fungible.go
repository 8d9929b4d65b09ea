package custody

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftmarket/internal/asset"
	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// FungibleAdapter exposes an ERC-1155 contract through the Adapter capability.
type FungibleAdapter struct {
	token asset.ERC1155
}

// NewFungibleAdapter wraps an ERC-1155 contract.
func NewFungibleAdapter(token asset.ERC1155) *FungibleAdapter {
	return &FungibleAdapter{token: token}
}

// Kind returns domain.KindFungible.
func (a *FungibleAdapter) Kind() domain.TokenKind {
	return domain.KindFungible
}

// Holds reports whether owner's balance covers quantity.
func (a *FungibleAdapter) Holds(owner common.Address, tokenID uint64, quantity uint64) (bool, error) {
	return a.token.BalanceOf(owner, tokenID) >= quantity, nil
}

// IsAuthorized reports whether operator holds blanket operator approval from
// owner; ERC-1155 has no per-token approvals.
func (a *FungibleAdapter) IsAuthorized(owner, operator common.Address, tokenID uint64) (bool, error) {
	return a.token.IsApprovedForAll(owner, operator), nil
}

// Transfer moves exactly quantity units.
func (a *FungibleAdapter) Transfer(operator, from, to common.Address, tokenID uint64, quantity uint64) error {
	if err := a.token.SafeTransferFrom(operator, from, to, tokenID, quantity); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTransferRejected, err)
	}
	return nil
}

var _ Adapter = (*FungibleAdapter)(nil)
