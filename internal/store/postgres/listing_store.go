package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// ListingStore implements domain.ListingStore backed by PostgreSQL.
// Addresses are stored as checksummed hex text and prices as NUMERIC(78,0)
// so full uint256 values round-trip losslessly.
type ListingStore struct {
	pool *pgxpool.Pool
}

// NewListingStore creates a ListingStore using the given connection pool.
func NewListingStore(pool *pgxpool.Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

const listingCols = `contract, token_id::text, seller, price::text, kind, quantity,
	paused, sold, created_at, updated_at`

// Upsert inserts or updates a single listing snapshot.
func (s *ListingStore) Upsert(ctx context.Context, l domain.Listing) error {
	const query = `
		INSERT INTO listings (
			contract, token_id, seller, price, kind, quantity,
			paused, sold, created_at, updated_at
		) VALUES ($1, $2::numeric, $3, $4::numeric, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (contract, token_id) DO UPDATE SET
			seller     = EXCLUDED.seller,
			price      = EXCLUDED.price,
			kind       = EXCLUDED.kind,
			quantity   = EXCLUDED.quantity,
			paused     = EXCLUDED.paused,
			sold       = EXCLUDED.sold,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query,
		l.Contract.Hex(), tokenIDParam(l.TokenID), l.Seller.Hex(), l.Price.String(),
		int16(l.Kind), int64(l.Quantity), l.Paused, l.Sold, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert listing %s/%d: %w", l.Contract.Hex(), l.TokenID, err)
	}
	return nil
}

// Delete removes a listing row. Deleting an absent key is a no-op.
func (s *ListingStore) Delete(ctx context.Context, key domain.ListingKey) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM listings WHERE contract = $1 AND token_id = $2::numeric`,
		key.Contract.Hex(), tokenIDParam(key.TokenID),
	)
	if err != nil {
		return fmt.Errorf("postgres: delete listing %s/%d: %w", key.Contract.Hex(), key.TokenID, err)
	}
	return nil
}

// Get retrieves a listing by its composite key.
func (s *ListingStore) Get(ctx context.Context, key domain.ListingKey) (domain.Listing, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+listingCols+` FROM listings WHERE contract = $1 AND token_id = $2::numeric`,
		key.Contract.Hex(), tokenIDParam(key.TokenID),
	)
	l, err := scanListing(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Listing{}, domain.ErrNotFound
		}
		return domain.Listing{}, fmt.Errorf("postgres: get listing %s/%d: %w", key.Contract.Hex(), key.TokenID, err)
	}
	return l, nil
}

// ListLive returns unsold listings, newest first, with pagination.
func (s *ListingStore) ListLive(ctx context.Context, opts domain.ListOpts) ([]domain.Listing, error) {
	query := `SELECT ` + listingCols + ` FROM listings WHERE sold = FALSE`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list live listings: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

// ListAll returns every listing row, sold included. Used by the boot restore.
func (s *ListingStore) ListAll(ctx context.Context) ([]domain.Listing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+listingCols+` FROM listings ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list all listings: %w", err)
	}
	defer rows.Close()

	return collectListings(rows)
}

// Count returns the number of live (unsold) listings.
func (s *ListingStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM listings WHERE sold = FALSE`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count listings: %w", err)
	}
	return n, nil
}

// scanListing scans a single listing row into a domain.Listing.
func scanListing(row pgx.Row) (domain.Listing, error) {
	var (
		l        domain.Listing
		contract string
		tokenID  string
		seller   string
		price    string
		kind     int16
		quantity int64
	)
	err := row.Scan(
		&contract, &tokenID, &seller, &price, &kind, &quantity,
		&l.Paused, &l.Sold, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return domain.Listing{}, err
	}

	id, err := parseTokenID(tokenID)
	if err != nil {
		return domain.Listing{}, err
	}
	p, ok := new(big.Int).SetString(price, 10)
	if !ok {
		return domain.Listing{}, fmt.Errorf("invalid price %q", price)
	}

	l.Contract = common.HexToAddress(contract)
	l.TokenID = id
	l.Seller = common.HexToAddress(seller)
	l.Price = p
	l.Kind = domain.TokenKind(kind)
	l.Quantity = uint64(quantity)
	return l, nil
}

func collectListings(rows pgx.Rows) ([]domain.Listing, error) {
	var out []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate listings: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.ListingStore = (*ListingStore)(nil)
