package postgres

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// EventStore implements domain.EventStore: the append-only marketplace
// notification log.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates an EventStore using the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

const eventCols = `id, type, contract, token_id::text, seller, buyer, kind,
	quantity, price::text, paused, receipt, created_at`

// Append inserts one event row.
func (s *EventStore) Append(ctx context.Context, e domain.Event) error {
	var buyer *string
	if e.Buyer != (common.Address{}) {
		h := e.Buyer.Hex()
		buyer = &h
	}
	var price *string
	if e.Price != nil {
		p := e.Price.String()
		price = &p
	}

	const query = `
		INSERT INTO events (
			id, type, contract, token_id, seller, buyer, kind,
			quantity, price, paused, receipt, created_at
		) VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9::numeric, $10, $11, $12)`

	_, err := s.pool.Exec(ctx, query,
		e.ID, string(e.Type), e.Contract.Hex(), tokenIDParam(e.TokenID), e.Seller.Hex(),
		buyer, int16(e.Kind), int64(e.Quantity), price, e.Paused, e.Receipt, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: append event %s: %w", e.ID, err)
	}
	return nil
}

// List returns events, newest first, with pagination and time filtering.
func (s *EventStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Event, error) {
	query := `SELECT ` + eventCols + ` FROM events WHERE TRUE`
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
		return nil, fmt.Errorf("postgres: list events: %w", err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// ListByListing returns the event history of one listing key, oldest first.
func (s *EventStore) ListByListing(ctx context.Context, key domain.ListingKey, opts domain.ListOpts) ([]domain.Event, error) {
	query := `SELECT ` + eventCols + ` FROM events
		WHERE contract = $1 AND token_id = $2::numeric ORDER BY created_at`
	args := []any{key.Contract.Hex(), tokenIDParam(key.TokenID)}

	if opts.Limit > 0 {
		query += " LIMIT $3"
		args = append(args, opts.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events for %s/%d: %w", key.Contract.Hex(), key.TokenID, err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// ListBefore returns up to limit events older than the cutoff, oldest first.
// The archiver drains the log in these batches.
func (s *EventStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+eventCols+` FROM events WHERE created_at < $1 ORDER BY created_at LIMIT $2`,
		before, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events before %s: %w", before, err)
	}
	defer rows.Close()

	return collectEvents(rows)
}

// DeleteBefore removes events older than the cutoff and reports how many
// rows were deleted.
func (s *EventStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete events before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var (
		e        domain.Event
		typ      string
		contract string
		tokenID  string
		seller   string
		buyer    *string
		kind     int16
		quantity int64
		price    *string
	)
	err := row.Scan(
		&e.ID, &typ, &contract, &tokenID, &seller, &buyer, &kind,
		&quantity, &price, &e.Paused, &e.Receipt, &e.CreatedAt,
	)
	if err != nil {
		return domain.Event{}, err
	}

	id, err := parseTokenID(tokenID)
	if err != nil {
		return domain.Event{}, err
	}
	e.Type = domain.EventType(typ)
	e.Contract = common.HexToAddress(contract)
	e.TokenID = id
	e.Seller = common.HexToAddress(seller)
	if buyer != nil {
		e.Buyer = common.HexToAddress(*buyer)
	}
	e.Kind = domain.TokenKind(kind)
	e.Quantity = uint64(quantity)
	if price != nil {
		p, ok := new(big.Int).SetString(*price, 10)
		if !ok {
			return domain.Event{}, fmt.Errorf("invalid price %q", *price)
		}
		e.Price = p
	}
	return e, nil
}

func collectEvents(rows pgx.Rows) ([]domain.Event, error) {
	var out []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate events: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.EventStore = (*EventStore)(nil)
