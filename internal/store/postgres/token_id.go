package postgres

import (
	"fmt"
	"strconv"
)

// Token ids occupy the full uint64 range, which overflows a Postgres BIGINT
// above 1<<63-1. They are bound and scanned as decimal text against a
// NUMERIC(20, 0) column so the high range round-trips losslessly, the same
// treatment prices get.

func tokenIDParam(id uint64) string {
	return strconv.FormatUint(id, 10)
}

func parseTokenID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token id %q: %w", s, err)
	}
	return id, nil
}
