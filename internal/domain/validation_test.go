package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeShortCode(t *testing.T) {
	got, err := NormalizeShortCode("abc123")
	require.NoError(t, err)
	require.Equal(t, "ABC123", got)

	for _, bad := range []string{"", "AB", " ABC ", "ABC\n", "abc-123", "ABCDEFGHIJKLMNOPQRSTUVWXYZ"} {
		_, err := NormalizeShortCode(bad)
		require.ErrorIs(t, err, ErrInvalidShortCode, "%q", bad)
		var fe FieldError
		require.True(t, errors.As(err, &fe), "%q", bad)
	}
}

func TestIsShortCode(t *testing.T) {
	require.True(t, IsShortCode("XYZ9Z"))
	require.False(t, IsShortCode("https://example.com/ref"))
	require.False(t, IsShortCode(" XYZ9Z"))
}

func TestOfferCodeMarkers(t *testing.T) {
	require.Equal(t, "SAVE10", SanitizeOfferCode(` "SAVE10" `))
	require.True(t, IsOfferCodeMissing("Routenotfound"))
	require.False(t, IsOfferCodeMissing("SAVE10"))
}
