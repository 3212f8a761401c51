package idempotency

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdentifierShape(t *testing.T) {
	require.Equal(t, "PROMO99-0A1B2C", Identifier("PROMO99", "0A1B2C"))
	require.Equal(t, "https://x.io/a?b=c-0A1B2C", Identifier("https://x.io/a?b=c", "0A1B2C"))
}

func TestDecide(t *testing.T) {
	require.Equal(t, DecisionStore, Decide("", "A-1"))
	require.Equal(t, DecisionReplace, Decide("B-1", "A-1"))
	require.Equal(t, DecisionSkip, Decide("A-1", "A-1"))
	require.False(t, DecisionSkip.Writes())
	require.True(t, DecisionReplace.Writes())
}
