package enrichment

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"

	"example.com/affiliatesdk/internal/domain"
	"example.com/affiliatesdk/internal/metrics"
	transport "example.com/affiliatesdk/internal/transport/http"
)

// API is the part of the client the fetcher needs.
type API interface {
	Get(ctx context.Context, endpoint, path string, query url.Values) transport.Result
	PostJSON(ctx context.Context, endpoint, path string, payload any) transport.Result
}

// Sink receives the enrichment results.
type Sink interface {
	Store(ctx context.Context, code string) string
	SetOfferCode(ctx context.Context, code string) error
	SaveEnrichment(ctx context.Context, rec domain.EnrichmentRecord) error
}

// Fetcher looks up offer codes and affiliate metadata for a canonical code.
// Every call is a single attempt; failures are logged and swallowed.
type Fetcher struct {
	api         API
	sink        Sink
	companyCode string
	log         *slog.Logger
	metrics     *metrics.AttributionMetrics
}

func New(api API, sink Sink, companyCode string, log *slog.Logger, m *metrics.AttributionMetrics) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		api:         api,
		sink:        sink,
		companyCode: companyCode,
		log:         log.With("component", "enrichment"),
		metrics:     m,
	}
}

// FetchOfferCode persists the offer code for code, if the backend has one.
// It reports whether a code was stored.
func (f *Fetcher) FetchOfferCode(ctx context.Context, code string) bool {
	res := f.api.Get(ctx, transport.EndpointOfferCode, transport.PathOfferCode+"/"+url.PathEscape(code), nil)
	if !res.Success {
		f.log.Debug("no offer code found", "code", code, "status", res.StatusCode, "error", res.Err)
		f.metrics.RecordFallback(transport.EndpointOfferCode, "transport")
		return false
	}

	offer := domain.SanitizeOfferCode(res.Text())
	if offer == "" || domain.IsOfferCodeMissing(offer) {
		f.log.Debug("offer code not found", "code", code)
		f.metrics.RecordFallback(transport.EndpointOfferCode, "not_found")
		return false
	}
	if err := f.sink.SetOfferCode(ctx, offer); err != nil {
		f.log.Error("persist offer code failed", "error", err)
		return false
	}
	f.log.Debug("offer code stored", "offer_code", offer)
	return true
}

// FetchAffiliateMetadata asks the backend whether code is a known affiliate.
// A confirmed affiliate has its metadata persisted and code stored through
// the idempotent identifier path. It reports whether the affiliate exists.
func (f *Fetcher) FetchAffiliateMetadata(ctx context.Context, code string) bool {
	res := f.api.PostJSON(ctx, transport.EndpointCheck, transport.PathCheckAffiliate, domain.AffiliateCheckRequest{
		CompanyID:     f.companyCode,
		AffiliateCode: code,
	})
	if !res.Success {
		f.log.Warn("affiliate lookup failed", "code", code, "status", res.StatusCode, "error", res.Err)
		f.metrics.RecordFallback(transport.EndpointCheck, "transport")
		return false
	}

	var resp domain.AffiliateCheckResponse
	if err := json.Unmarshal(res.Body, &resp); err != nil {
		f.log.Error("failed to parse affiliate lookup", "error", err, "body", res.Text())
		f.metrics.RecordFallback(transport.EndpointCheck, "parse")
		return false
	}
	if !resp.Exists || resp.Affiliate == nil {
		f.log.Warn("affiliate short code not recognised", "code", code)
		f.metrics.RecordFallback(transport.EndpointCheck, "not_found")
		return false
	}

	rec := domain.EnrichmentRecord{
		AffiliateName:      resp.Affiliate.AffiliateName,
		AffiliateShortCode: resp.Affiliate.AffiliateShortCode,
		RawPayload:         res.Text(),
	}
	if err := f.sink.SaveEnrichment(ctx, rec); err != nil {
		f.log.Error("persist affiliate details failed", "error", err)
	}
	f.log.Debug("affiliate confirmed", "code", code, "affiliate_name", rec.AffiliateName)
	f.sink.Store(ctx, code)
	return true
}
