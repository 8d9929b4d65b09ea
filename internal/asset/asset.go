// Package asset defines the token-contract surfaces the marketplace consumes
// (ERC-721 and ERC-1155 equivalents) together with in-memory reference
// implementations. The real contracts are external collaborators; the
// in-memory tokens back the demo mode and the test suite with the same
// ownership and approval rules the standards specify.
package asset

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnknownToken        = errors.New("asset: unknown token id")
	ErrNotAuthorized       = errors.New("asset: caller not authorized to transfer")
	ErrInsufficientBalance = errors.New("asset: insufficient balance")
	ErrZeroAddress         = errors.New("asset: zero address")
	ErrTokenExists         = errors.New("asset: token id already minted")
)

// ERC721 is the unique-token contract surface. Every call carries the caller
// explicitly since there is no transaction context to derive it from.
type ERC721 interface {
	Address() common.Address
	OwnerOf(tokenID uint64) (common.Address, error)
	GetApproved(tokenID uint64) (common.Address, error)
	IsApprovedForAll(owner, operator common.Address) bool
	Approve(caller, to common.Address, tokenID uint64) error
	SetApprovalForAll(caller, operator common.Address, approved bool) error
	TransferFrom(caller, from, to common.Address, tokenID uint64) error
}

// ERC1155 is the fungible-by-id contract surface.
type ERC1155 interface {
	Address() common.Address
	BalanceOf(owner common.Address, tokenID uint64) uint64
	IsApprovedForAll(owner, operator common.Address) bool
	SetApprovalForAll(caller, operator common.Address, approved bool) error
	SafeTransferFrom(caller, from, to common.Address, tokenID uint64, amount uint64) error
}
