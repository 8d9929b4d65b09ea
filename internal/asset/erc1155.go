package asset

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Token1155 is an in-memory ERC1155 implementation: per-id balances with
// blanket operator approval. Transfers move an arbitrary sub-quantity up to
// the holder's balance.
type Token1155 struct {
	mu        sync.Mutex
	addr      common.Address
	balances  map[uint64]map[common.Address]uint64
	operators map[common.Address]map[common.Address]bool
}

// NewToken1155 creates an empty fungible-by-id contract at the given address.
func NewToken1155(addr common.Address) *Token1155 {
	return &Token1155{
		addr:      addr,
		balances:  make(map[uint64]map[common.Address]uint64),
		operators: make(map[common.Address]map[common.Address]bool),
	}
}

// Address returns the contract identity.
func (t *Token1155) Address() common.Address {
	return t.addr
}

// Mint credits an owner with amount units of a token id. Test and demo
// scaffolding only.
func (t *Token1155) Mint(to common.Address, tokenID uint64, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	bal := t.balances[tokenID]
	if bal == nil {
		bal = make(map[common.Address]uint64)
		t.balances[tokenID] = bal
	}
	bal[to] += amount
	return nil
}

// BalanceOf returns the owner's balance for a token id.
func (t *Token1155) BalanceOf(owner common.Address, tokenID uint64) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[tokenID][owner]
}

// IsApprovedForAll reports whether operator holds blanket approval for owner.
func (t *Token1155) IsApprovedForAll(owner, operator common.Address) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.operators[owner][operator]
}

// SetApprovalForAll grants or revokes operator status for all of the caller's
// token ids.
func (t *Token1155) SetApprovalForAll(caller, operator common.Address, approved bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if operator == (common.Address{}) {
		return ErrZeroAddress
	}
	ops := t.operators[caller]
	if ops == nil {
		ops = make(map[common.Address]bool)
		t.operators[caller] = ops
	}
	ops[operator] = approved
	return nil
}

// SafeTransferFrom moves amount units of a token id between holders. The
// caller must be the holder or one of its operators, and the transfer either
// moves the full amount or fails.
func (t *Token1155) SafeTransferFrom(caller, from, to common.Address, tokenID uint64, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if caller != from && !t.operators[from][caller] {
		return ErrNotAuthorized
	}
	// Zero-amount transfers move nothing; returning early keeps the balance
	// maps untouched for token ids that were never minted.
	if amount == 0 {
		return nil
	}
	bal := t.balances[tokenID]
	if bal[from] < amount {
		return ErrInsufficientBalance
	}

	bal[from] -= amount
	if bal[from] == 0 {
		delete(bal, from)
	}
	bal[to] += amount
	return nil
}

var _ ERC1155 = (*Token1155)(nil)
