package market

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

var (
	acctA = common.HexToAddress("0x0000000000000000000000000000000000000001")
	acctB = common.HexToAddress("0x0000000000000000000000000000000000000002")
	acctC = common.HexToAddress("0x0000000000000000000000000000000000000003")
)

func TestLedgerDepositWithdraw(t *testing.T) {
	l := NewLedger()

	require.NoError(t, l.Deposit(acctA, big.NewInt(100)))
	assert.EqualValues(t, 100, l.Balance(acctA).Int64())

	require.NoError(t, l.Withdraw(acctA, big.NewInt(40)))
	assert.EqualValues(t, 60, l.Balance(acctA).Int64())

	err := l.Withdraw(acctA, big.NewInt(61))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.EqualValues(t, 60, l.Balance(acctA).Int64())
}

func TestLedgerRejectsNonPositiveAmounts(t *testing.T) {
	l := NewLedger()

	assert.Error(t, l.Deposit(acctA, big.NewInt(0)))
	assert.Error(t, l.Deposit(acctA, big.NewInt(-5)))
	assert.Error(t, l.Deposit(acctA, nil))
	assert.Error(t, l.Withdraw(acctA, big.NewInt(0)))
}

func TestLedgerSaleLegs(t *testing.T) {
	// acctA buys, acctB sells, acctC is the custody escrow.

	t.Run("capture parks the value with custody", func(t *testing.T) {
		l := NewLedger()
		require.NoError(t, l.Deposit(acctA, big.NewInt(150)))

		require.NoError(t, l.Capture(acctA, acctC, big.NewInt(150)))
		assert.EqualValues(t, 0, l.Balance(acctA).Int64())
		assert.EqualValues(t, 150, l.Balance(acctC).Int64())
	})

	t.Run("capture with insufficient balance leaves no partial effect", func(t *testing.T) {
		l := NewLedger()
		require.NoError(t, l.Deposit(acctA, big.NewInt(50)))

		err := l.Capture(acctA, acctC, big.NewInt(100))
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		assert.EqualValues(t, 50, l.Balance(acctA).Int64())
		assert.EqualValues(t, 0, l.Balance(acctC).Int64())
	})

	t.Run("release pays the seller, excess stays with custody", func(t *testing.T) {
		l := NewLedger()
		require.NoError(t, l.Deposit(acctA, big.NewInt(150)))
		require.NoError(t, l.Capture(acctA, acctC, big.NewInt(150)))

		require.NoError(t, l.Release(acctC, acctB, big.NewInt(100)))
		assert.EqualValues(t, 100, l.Balance(acctB).Int64())
		assert.EqualValues(t, 50, l.Balance(acctC).Int64())
	})

	t.Run("refund returns the captured value to the buyer", func(t *testing.T) {
		l := NewLedger()
		require.NoError(t, l.Deposit(acctA, big.NewInt(150)))
		require.NoError(t, l.Capture(acctA, acctC, big.NewInt(150)))

		require.NoError(t, l.Refund(acctC, acctA, big.NewInt(150)))
		assert.EqualValues(t, 150, l.Balance(acctA).Int64())
		assert.EqualValues(t, 0, l.Balance(acctC).Int64())
		assert.EqualValues(t, 0, l.Balance(acctB).Int64())
	})
}

func TestLedgerBalanceIsACopy(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Deposit(acctA, big.NewInt(10)))

	b := l.Balance(acctA)
	b.SetInt64(9999)
	assert.EqualValues(t, 10, l.Balance(acctA).Int64())
}

func TestLedgerCovers(t *testing.T) {
	l := NewLedger()
	assert.False(t, l.Covers(acctA, big.NewInt(1)))

	require.NoError(t, l.Deposit(acctA, big.NewInt(10)))
	assert.True(t, l.Covers(acctA, big.NewInt(10)))
	assert.False(t, l.Covers(acctA, big.NewInt(11)))
}
