package market

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// Ledger tracks the native-currency balances held inside the marketplace
// process: buyer deposits waiting to be spent and seller proceeds waiting to
// be withdrawn. It stands in for the platform's value transfer.
type Ledger struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[common.Address]*big.Int)}
}

// Deposit credits an account. Amount must be positive.
func (l *Ledger) Deposit(addr common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return domain.ErrInvalidPrice
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(addr, amount)
	return nil
}

// Withdraw debits an account, rejecting overdrafts.
func (l *Ledger) Withdraw(addr common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return domain.ErrInvalidPrice
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debit(addr, amount)
}

// Balance returns a copy of the account's current balance.
func (l *Ledger) Balance(addr common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.balances[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Covers reports whether the account balance is at least amount.
func (l *Ledger) Covers(addr common.Address, amount *big.Int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.balances[addr]
	return ok && b.Cmp(amount) >= 0
}

// Capture moves the buyer's attached value into the custody escrow account.
// It is the first leg of a sale: the value is parked with custody so a later
// rejected asset transfer can be refunded without involving the seller. It
// fails without partial effect if the buyer's balance does not cover value.
func (l *Ledger) Capture(buyer, custody common.Address, value *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.debit(buyer, value); err != nil {
		return err
	}
	l.credit(custody, value)
	return nil
}

// Release pays the seller the asking price out of the custody escrow. Any
// excess of the captured value over the price stays with custody as accrued
// overpayment.
func (l *Ledger) Release(custody, seller common.Address, price *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.debit(custody, price); err != nil {
		return err
	}
	l.credit(seller, price)
	return nil
}

// Refund returns a captured value from the custody escrow to the buyer.
func (l *Ledger) Refund(custody, buyer common.Address, value *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.debit(custody, value); err != nil {
		return err
	}
	l.credit(buyer, value)
	return nil
}

// credit and debit assume the caller holds the mutex.

func (l *Ledger) credit(addr common.Address, amount *big.Int) {
	b, ok := l.balances[addr]
	if !ok {
		b = new(big.Int)
		l.balances[addr] = b
	}
	b.Add(b, amount)
}

func (l *Ledger) debit(addr common.Address, amount *big.Int) error {
	b, ok := l.balances[addr]
	if !ok || b.Cmp(amount) < 0 {
		return domain.ErrInsufficientFunds
	}
	b.Sub(b, amount)
	return nil
}
