package enrichment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/affiliatesdk/internal/domain"
	"example.com/affiliatesdk/internal/fakeapi"
	transport "example.com/affiliatesdk/internal/transport/http"
)

type memSink struct {
	stored []string
	offer  string
	rec    domain.EnrichmentRecord
}

func (m *memSink) Store(_ context.Context, code string) string {
	m.stored = append(m.stored, code)
	return code
}

func (m *memSink) SetOfferCode(_ context.Context, code string) error {
	m.offer = code
	return nil
}

func (m *memSink) SaveEnrichment(_ context.Context, rec domain.EnrichmentRecord) error {
	m.rec = rec
	return nil
}

func newFetcher(t *testing.T) (*Fetcher, *fakeapi.Server, *memSink) {
	t.Helper()
	api := fakeapi.New()
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	sink := &memSink{}
	client := transport.NewClient(transport.Config{BaseURL: srv.URL}, nil, nil)
	return New(client, sink, "ABC123", nil, nil), api, sink
}

func TestFetchOfferCodeSanitizes(t *testing.T) {
	f, api, sink := newFetcher(t)
	api.SetOfferCode("PROMO99", http.StatusOK, "  \"SPRING-25_off!\"\n")

	require.True(t, f.FetchOfferCode(context.Background(), "PROMO99"))
	require.Equal(t, "SPRING25_off", sink.offer)
}

func TestFetchOfferCodeRejectsErrorBodies(t *testing.T) {
	for _, body := range []string{`{"error":"x"}`, "notfound", "Route not found", "offer_error_1"} {
		f, api, sink := newFetcher(t)
		api.SetOfferCode("PROMO99", http.StatusOK, body)
		require.False(t, f.FetchOfferCode(context.Background(), "PROMO99"), body)
		require.Empty(t, sink.offer, body)
	}
}

func TestFetchOfferCodeTransportFailure(t *testing.T) {
	f, _, sink := newFetcher(t)
	require.False(t, f.FetchOfferCode(context.Background(), "UNKNOWN1"))
	require.Empty(t, sink.offer)
}

func TestFetchAffiliateMetadataConfirmed(t *testing.T) {
	f, api, sink := newFetcher(t)
	api.AddAffiliate("JANE1", domain.AffiliateInfo{AffiliateName: "Jane", AffiliateShortCode: "JANE1", DeepLinkURL: "https://x/jane"})

	require.True(t, f.FetchAffiliateMetadata(context.Background(), "JANE1"))
	require.Equal(t, []string{"JANE1"}, sink.stored)
	require.Equal(t, "Jane", sink.rec.AffiliateName)
	require.Equal(t, "JANE1", sink.rec.AffiliateShortCode)
	require.Contains(t, sink.rec.RawPayload, `"exists":true`)

	calls := api.Calls()
	require.Len(t, calls, 1)
	require.JSONEq(t, `{"companyId":"ABC123","affiliateCode":"JANE1"}`, calls[0].Body)
}

func TestFetchAffiliateMetadataUnknownOrFailing(t *testing.T) {
	f, _, sink := newFetcher(t)
	require.False(t, f.FetchAffiliateMetadata(context.Background(), "NOBODY"))
	require.Empty(t, sink.stored)

	f, api, sink := newFetcher(t)
	api.AddAffiliate("JANE1", domain.AffiliateInfo{AffiliateName: "Jane"})
	api.FailCheck(http.StatusNotFound)
	require.False(t, f.FetchAffiliateMetadata(context.Background(), "JANE1"))
	require.Empty(t, sink.stored)
	require.True(t, sink.rec.Empty())
}
