package custody

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/nftmarket/internal/asset"
	"github.com/alanyoungcy/nftmarket/internal/domain"
)

var (
	alice    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000002")
	operator = common.HexToAddress("0x00000000000000000000000000000000000000c0")

	contract721  = common.HexToAddress("0x0000000000000000000000000000000000000721")
	contract1155 = common.HexToAddress("0x0000000000000000000000000000000000001155")
)

func TestUniqueAdapter(t *testing.T) {
	newAdapter := func(t *testing.T) (*UniqueAdapter, *asset.Token721) {
		t.Helper()
		token := asset.NewToken721(contract721)
		require.NoError(t, token.Mint(alice, 1))
		return NewUniqueAdapter(token), token
	}

	t.Run("kind", func(t *testing.T) {
		a, _ := newAdapter(t)
		assert.Equal(t, domain.KindUnique, a.Kind())
	})

	t.Run("holds reflects ownership", func(t *testing.T) {
		a, _ := newAdapter(t)

		holds, err := a.Holds(alice, 1, 1)
		require.NoError(t, err)
		assert.True(t, holds)

		holds, err = a.Holds(bob, 1, 1)
		require.NoError(t, err)
		assert.False(t, holds)

		_, err = a.Holds(alice, 99, 1)
		assert.Error(t, err)
	})

	t.Run("per-token approval authorizes the operator", func(t *testing.T) {
		a, token := newAdapter(t)

		ok, err := a.IsAuthorized(alice, operator, 1)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, token.Approve(alice, operator, 1))
		ok, err = a.IsAuthorized(alice, operator, 1)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("blanket approval authorizes the operator", func(t *testing.T) {
		a, token := newAdapter(t)
		require.NoError(t, token.SetApprovalForAll(alice, operator, true))

		ok, err := a.IsAuthorized(alice, operator, 1)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("transfer moves the whole unit", func(t *testing.T) {
		a, token := newAdapter(t)
		require.NoError(t, token.Approve(alice, operator, 1))

		require.NoError(t, a.Transfer(operator, alice, bob, 1, 1))

		holder, err := token.OwnerOf(1)
		require.NoError(t, err)
		assert.Equal(t, bob, holder)
	})

	t.Run("transfer with quantity other than one rejected", func(t *testing.T) {
		a, token := newAdapter(t)
		require.NoError(t, token.Approve(alice, operator, 1))

		err := a.Transfer(operator, alice, bob, 1, 2)
		assert.ErrorIs(t, err, domain.ErrTransferRejected)
	})

	t.Run("unauthorized transfer rejected", func(t *testing.T) {
		a, token := newAdapter(t)

		err := a.Transfer(operator, alice, bob, 1, 1)
		assert.ErrorIs(t, err, domain.ErrTransferRejected)

		holder, err2 := token.OwnerOf(1)
		require.NoError(t, err2)
		assert.Equal(t, alice, holder)
	})
}

func TestFungibleAdapter(t *testing.T) {
	newAdapter := func(t *testing.T) (*FungibleAdapter, *asset.Token1155) {
		t.Helper()
		token := asset.NewToken1155(contract1155)
		require.NoError(t, token.Mint(alice, 1, 100))
		return NewFungibleAdapter(token), token
	}

	t.Run("kind", func(t *testing.T) {
		a, _ := newAdapter(t)
		assert.Equal(t, domain.KindFungible, a.Kind())
	})

	t.Run("holds reflects balance", func(t *testing.T) {
		a, _ := newAdapter(t)

		holds, err := a.Holds(alice, 1, 100)
		require.NoError(t, err)
		assert.True(t, holds)

		holds, err = a.Holds(alice, 1, 101)
		require.NoError(t, err)
		assert.False(t, holds)

		holds, err = a.Holds(bob, 1, 1)
		require.NoError(t, err)
		assert.False(t, holds)
	})

	t.Run("only blanket approval authorizes", func(t *testing.T) {
		a, token := newAdapter(t)

		ok, err := a.IsAuthorized(alice, operator, 1)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, token.SetApprovalForAll(alice, operator, true))
		ok, err = a.IsAuthorized(alice, operator, 1)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("transfer moves exactly the requested quantity", func(t *testing.T) {
		a, token := newAdapter(t)
		require.NoError(t, token.SetApprovalForAll(alice, operator, true))

		require.NoError(t, a.Transfer(operator, alice, bob, 1, 40))

		assert.EqualValues(t, 60, token.BalanceOf(alice, 1))
		assert.EqualValues(t, 40, token.BalanceOf(bob, 1))
	})

	t.Run("transfer above balance rejected without partial move", func(t *testing.T) {
		a, token := newAdapter(t)
		require.NoError(t, token.SetApprovalForAll(alice, operator, true))

		err := a.Transfer(operator, alice, bob, 1, 101)
		assert.ErrorIs(t, err, domain.ErrTransferRejected)

		assert.EqualValues(t, 100, token.BalanceOf(alice, 1))
		assert.EqualValues(t, 0, token.BalanceOf(bob, 1))
	})
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.AdapterFor(contract721)
	assert.ErrorIs(t, err, ErrUnknownContract)

	adapter := NewUniqueAdapter(asset.NewToken721(contract721))
	reg.Register(contract721, adapter)

	got, err := reg.AdapterFor(contract721)
	require.NoError(t, err)
	assert.Same(t, adapter, got.(*UniqueAdapter))
}
