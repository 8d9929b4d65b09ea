package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// StateStore implements domain.StateStore: the single marketplace_state row
// that carries the owner, custody address, listing counter, and the
// initialize guard across process restarts.
type StateStore struct {
	pool *pgxpool.Pool
}

// NewStateStore creates a StateStore using the given connection pool.
func NewStateStore(pool *pgxpool.Pool) *StateStore {
	return &StateStore{pool: pool}
}

// Save writes the singleton state row.
func (s *StateStore) Save(ctx context.Context, state domain.MarketplaceState) error {
	const query = `
		INSERT INTO marketplace_state (id, owner_addr, custody_addr, listing_count, initialized, updated_at)
		VALUES (1, $1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			owner_addr    = EXCLUDED.owner_addr,
			custody_addr  = EXCLUDED.custody_addr,
			listing_count = EXCLUDED.listing_count,
			initialized   = EXCLUDED.initialized,
			updated_at    = NOW()`

	_, err := s.pool.Exec(ctx, query,
		state.Owner.Hex(), state.Custody.Hex(), int64(state.ListingCount), state.Initialized,
	)
	if err != nil {
		return fmt.Errorf("postgres: save marketplace state: %w", err)
	}
	return nil
}

// Load reads the singleton state row. domain.ErrNotFound means the
// marketplace was never initialized against this database.
func (s *StateStore) Load(ctx context.Context) (domain.MarketplaceState, error) {
	var (
		state   domain.MarketplaceState
		owner   string
		custody string
		count   int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT owner_addr, custody_addr, listing_count, initialized, updated_at
		 FROM marketplace_state WHERE id = 1`,
	).Scan(&owner, &custody, &count, &state.Initialized, &state.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.MarketplaceState{}, domain.ErrNotFound
		}
		return domain.MarketplaceState{}, fmt.Errorf("postgres: load marketplace state: %w", err)
	}

	state.Owner = common.HexToAddress(owner)
	state.Custody = common.HexToAddress(custody)
	state.ListingCount = uint64(count)
	return state, nil
}

// Compile-time interface check.
var _ domain.StateStore = (*StateStore)(nil)
