package postgres

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIDRoundTrip(t *testing.T) {
	for _, id := range []uint64{0, 1, 1 << 62, 1 << 63, math.MaxUint64} {
		got, err := parseTokenID(tokenIDParam(id))
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestParseTokenIDRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "-1", "18446744073709551616", "0x10"} {
		_, err := parseTokenID(s)
		assert.Error(t, err, "input %q", s)
	}
}
