package asset

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	receiver = common.HexToAddress("0x0000000000000000000000000000000000000002")
	operator = common.HexToAddress("0x0000000000000000000000000000000000000003")
	stranger = common.HexToAddress("0x0000000000000000000000000000000000000004")
)

func TestToken721(t *testing.T) {
	addr := common.HexToAddress("0x0000000000000000000000000000000000000721")

	t.Run("mint and ownership", func(t *testing.T) {
		tok := NewToken721(addr)
		require.NoError(t, tok.Mint(owner, 1))

		got, err := tok.OwnerOf(1)
		require.NoError(t, err)
		assert.Equal(t, owner, got)

		assert.ErrorIs(t, tok.Mint(receiver, 1), ErrTokenExists)
		_, err = tok.OwnerOf(2)
		assert.ErrorIs(t, err, ErrUnknownToken)
	})

	t.Run("owner transfers directly", func(t *testing.T) {
		tok := NewToken721(addr)
		require.NoError(t, tok.Mint(owner, 1))

		require.NoError(t, tok.TransferFrom(owner, owner, receiver, 1))
		got, err := tok.OwnerOf(1)
		require.NoError(t, err)
		assert.Equal(t, receiver, got)
	})

	t.Run("approved address transfers", func(t *testing.T) {
		tok := NewToken721(addr)
		require.NoError(t, tok.Mint(owner, 1))
		require.NoError(t, tok.Approve(owner, operator, 1))

		require.NoError(t, tok.TransferFrom(operator, owner, receiver, 1))

		// Approval is cleared by the transfer.
		approved, err := tok.GetApproved(1)
		require.NoError(t, err)
		assert.Equal(t, common.Address{}, approved)
	})

	t.Run("blanket operator transfers", func(t *testing.T) {
		tok := NewToken721(addr)
		require.NoError(t, tok.Mint(owner, 1))
		require.NoError(t, tok.SetApprovalForAll(owner, operator, true))

		require.NoError(t, tok.TransferFrom(operator, owner, receiver, 1))
	})

	t.Run("stranger cannot transfer or approve", func(t *testing.T) {
		tok := NewToken721(addr)
		require.NoError(t, tok.Mint(owner, 1))

		assert.ErrorIs(t, tok.TransferFrom(stranger, owner, receiver, 1), ErrNotAuthorized)
		assert.ErrorIs(t, tok.Approve(stranger, stranger, 1), ErrNotAuthorized)
	})

	t.Run("from must be the current owner", func(t *testing.T) {
		tok := NewToken721(addr)
		require.NoError(t, tok.Mint(owner, 1))

		assert.ErrorIs(t, tok.TransferFrom(owner, receiver, stranger, 1), ErrNotAuthorized)
	})

	t.Run("revoked operator cannot transfer", func(t *testing.T) {
		tok := NewToken721(addr)
		require.NoError(t, tok.Mint(owner, 1))
		require.NoError(t, tok.SetApprovalForAll(owner, operator, true))
		require.NoError(t, tok.SetApprovalForAll(owner, operator, false))

		assert.ErrorIs(t, tok.TransferFrom(operator, owner, receiver, 1), ErrNotAuthorized)
	})
}

func TestToken1155(t *testing.T) {
	addr := common.HexToAddress("0x0000000000000000000000000000000000001155")

	t.Run("mint accumulates balances", func(t *testing.T) {
		tok := NewToken1155(addr)
		require.NoError(t, tok.Mint(owner, 1, 50))
		require.NoError(t, tok.Mint(owner, 1, 25))

		assert.EqualValues(t, 75, tok.BalanceOf(owner, 1))
		assert.EqualValues(t, 0, tok.BalanceOf(receiver, 1))
	})

	t.Run("holder transfers a sub-quantity", func(t *testing.T) {
		tok := NewToken1155(addr)
		require.NoError(t, tok.Mint(owner, 1, 100))

		require.NoError(t, tok.SafeTransferFrom(owner, owner, receiver, 1, 30))
		assert.EqualValues(t, 70, tok.BalanceOf(owner, 1))
		assert.EqualValues(t, 30, tok.BalanceOf(receiver, 1))
	})

	t.Run("operator transfers on behalf of holder", func(t *testing.T) {
		tok := NewToken1155(addr)
		require.NoError(t, tok.Mint(owner, 1, 100))
		require.NoError(t, tok.SetApprovalForAll(owner, operator, true))

		require.NoError(t, tok.SafeTransferFrom(operator, owner, receiver, 1, 100))
		assert.EqualValues(t, 100, tok.BalanceOf(receiver, 1))
	})

	t.Run("unauthorized transfer rejected", func(t *testing.T) {
		tok := NewToken1155(addr)
		require.NoError(t, tok.Mint(owner, 1, 100))

		err := tok.SafeTransferFrom(stranger, owner, receiver, 1, 10)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("zero-amount transfer of an unminted id is a no-op", func(t *testing.T) {
		tok := NewToken1155(addr)

		require.NoError(t, tok.SafeTransferFrom(owner, owner, receiver, 99, 0))
		assert.EqualValues(t, 0, tok.BalanceOf(owner, 99))
		assert.EqualValues(t, 0, tok.BalanceOf(receiver, 99))
	})

	t.Run("overdraft rejected without partial move", func(t *testing.T) {
		tok := NewToken1155(addr)
		require.NoError(t, tok.Mint(owner, 1, 10))

		err := tok.SafeTransferFrom(owner, owner, receiver, 1, 11)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.EqualValues(t, 10, tok.BalanceOf(owner, 1))
	})
}
