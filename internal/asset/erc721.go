package asset

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Token721 is an in-memory ERC721 implementation. It enforces the standard's
// ownership and approval rules: a transfer requires the caller to be the
// owner, the per-token approved address, or a blanket operator.
type Token721 struct {
	mu        sync.Mutex
	addr      common.Address
	owners    map[uint64]common.Address
	approved  map[uint64]common.Address
	operators map[common.Address]map[common.Address]bool
}

// NewToken721 creates an empty unique-token contract at the given address.
func NewToken721(addr common.Address) *Token721 {
	return &Token721{
		addr:      addr,
		owners:    make(map[uint64]common.Address),
		approved:  make(map[uint64]common.Address),
		operators: make(map[common.Address]map[common.Address]bool),
	}
}

// Address returns the contract identity.
func (t *Token721) Address() common.Address {
	return t.addr
}

// Mint assigns a fresh token id to an owner. Test and demo scaffolding only;
// the marketplace itself never mints.
func (t *Token721) Mint(to common.Address, tokenID uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if _, ok := t.owners[tokenID]; ok {
		return ErrTokenExists
	}
	t.owners[tokenID] = to
	return nil
}

// OwnerOf returns the current holder of a token id.
func (t *Token721) OwnerOf(tokenID uint64) (common.Address, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	owner, ok := t.owners[tokenID]
	if !ok {
		return common.Address{}, ErrUnknownToken
	}
	return owner, nil
}

// GetApproved returns the single address approved for a token id, or the zero
// address when none is set.
func (t *Token721) GetApproved(tokenID uint64) (common.Address, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.owners[tokenID]; !ok {
		return common.Address{}, ErrUnknownToken
	}
	return t.approved[tokenID], nil
}

// IsApprovedForAll reports whether operator holds blanket approval for owner.
func (t *Token721) IsApprovedForAll(owner, operator common.Address) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.operators[owner][operator]
}

// Approve grants a single address the right to move one token id. Only the
// owner or one of its operators may call it.
func (t *Token721) Approve(caller, to common.Address, tokenID uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	owner, ok := t.owners[tokenID]
	if !ok {
		return ErrUnknownToken
	}
	if caller != owner && !t.operators[owner][caller] {
		return ErrNotAuthorized
	}
	t.approved[tokenID] = to
	return nil
}

// SetApprovalForAll grants or revokes operator status for all of the caller's
// tokens.
func (t *Token721) SetApprovalForAll(caller, operator common.Address, approved bool) error {
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

// TransferFrom moves a token id from one holder to another. The per-token
// approval is cleared on transfer, as the standard requires.
func (t *Token721) TransferFrom(caller, from, to common.Address, tokenID uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	owner, ok := t.owners[tokenID]
	if !ok {
		return ErrUnknownToken
	}
	if owner != from {
		return ErrNotAuthorized
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if caller != owner && caller != t.approved[tokenID] && !t.operators[owner][caller] {
		return ErrNotAuthorized
	}

	t.owners[tokenID] = to
	delete(t.approved, tokenID)
	return nil
}

var _ ERC721 = (*Token721)(nil)
