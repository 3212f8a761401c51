package engine

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"example.com/affiliatesdk/internal/domain"
	transport "example.com/affiliatesdk/internal/transport/http"
)

func tokenOf(t *testing.T, f *fixture, override string) string {
	t.Helper()
	ch := make(chan string, 1)
	require.NoError(t, f.engine.AccountTokenAndRecordExpectedTransaction(context.Background(), override, func(tok string) { ch <- tok }))
	f.engine.Wait()
	return <-ch
}

func TestAccountTokenGeneratedAndReused(t *testing.T) {
	f := newFixture(t, Settings{})
	first := tokenOf(t, f, "")
	_, err := uuid.Parse(first)
	require.NoError(t, err)

	stored, err := f.kv.Get(context.Background(), domain.KeyAccountToken)
	require.NoError(t, err)
	require.Equal(t, first, stored)
	require.Equal(t, first, tokenOf(t, f, ""))

	// no identifier, so nothing was posted
	require.Zero(t, f.api.CallCount(transport.PathExpectedTransaction))
}

func TestAccountTokenPrecedence(t *testing.T) {
	const (
		arg    = "11111111-1111-4111-8111-111111111111"
		static = "22222222-2222-4222-8222-222222222222"
		config = "33333333-3333-4333-8333-333333333333"
	)
	f := newFixture(t, Settings{AccountTokenOverride: config})
	require.Equal(t, config, tokenOf(t, f, ""))

	f.engine.SetAccountTokenOverride(static)
	require.Equal(t, static, tokenOf(t, f, ""))
	require.Equal(t, arg, tokenOf(t, f, arg))
	require.Equal(t, static, tokenOf(t, f, "not-a-uuid"))

	f.engine.SetAccountTokenOverride("")
	got, err := f.engine.AccountToken(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, config, got)
}

func TestExpectedTransactionPosted(t *testing.T) {
	f := newFixture(t, Settings{})
	require.NoError(t, f.engine.SetFromReferral(context.Background(), "XYZ9Z", nil))

	tok := tokenOf(t, f, "")
	require.Equal(t, []domain.ExpectedTransaction{{
		CompanyID:           "ABC123",
		AffiliateIdentifier: "XYZ9Z-" + deviceID,
		AppAccountToken:     tok,
	}}, f.api.Transactions())
}

func TestExpectedTransactionFailureStillReturnsToken(t *testing.T) {
	f := newFixture(t, Settings{})
	f.api.FailEvents(http.StatusBadGateway)
	require.NoError(t, f.engine.SetFromReferral(context.Background(), "XYZ9Z", nil))

	tok := tokenOf(t, f, "")
	require.NotEmpty(t, tok)
	require.Equal(t, 1, f.api.CallCount(transport.PathExpectedTransaction))
	require.Empty(t, f.api.Transactions())
}
