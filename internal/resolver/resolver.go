package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"example.com/affiliatesdk/internal/domain"
	"example.com/affiliatesdk/internal/metrics"
	transport "example.com/affiliatesdk/internal/transport/http"
)

// Getter is the part of the API client the resolver needs.
type Getter interface {
	Get(ctx context.Context, endpoint, path string, query url.Values) transport.Result
}

// Storer persists a canonical code as the attribution identifier.
type Storer interface {
	Store(ctx context.Context, code string) string
}

type ParseKind int

const (
	ParseFailed ParseKind = iota
	ParsedObject
	ParsedPlain
)

func (k ParseKind) String() string {
	switch k {
	case ParsedObject:
		return "object"
	case ParsedPlain:
		return "plain"
	default:
		return "failed"
	}
}

// ParseResult is the decoded conversion reply.
type ParseResult struct {
	Kind      ParseKind
	ShortLink string
	Err       error
}

var errEmptyShortLink = errors.New("empty short link")

// ParseShortLink decodes a conversion reply: a JSON object carrying
// shortLink, or a bare (possibly quoted) string.
func ParseShortLink(body string) ParseResult {
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "{") {
		var resp domain.ShortLinkResponse
		if err := json.Unmarshal([]byte(trimmed), &resp); err != nil {
			return ParseResult{Kind: ParseFailed, Err: err}
		}
		return ParseResult{Kind: ParsedObject, ShortLink: resp.ShortLink}
	}
	return ParseResult{Kind: ParsedPlain, ShortLink: strings.Trim(body, "\" \n\r")}
}

// Resolver converts deep links into canonical short codes.
type Resolver struct {
	api         Getter
	store       Storer
	companyCode string
	log         *slog.Logger
	metrics     *metrics.AttributionMetrics
}

func New(api Getter, store Storer, companyCode string, log *slog.Logger, m *metrics.AttributionMetrics) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		api:         api,
		store:       store,
		companyCode: companyCode,
		log:         log.With("component", "resolver"),
		metrics:     m,
	}
}

// Resolve stores exactly one identifier for raw and reports the resolved
// short link. On any conversion failure raw itself is stored and ok is
// false; the referral is never dropped.
func (r *Resolver) Resolve(ctx context.Context, raw string) (shortLink string, ok bool) {
	if domain.IsShortCode(raw) {
		r.log.Debug("referring link is already a short code", "short_code", raw)
		r.store.Store(ctx, raw)
		return raw, true
	}

	res := r.api.Get(ctx, transport.EndpointConvert, transport.PathConvertDeepLink, url.Values{
		"companyId":   {r.companyCode},
		"deepLinkUrl": {raw},
	})
	if !res.Success {
		r.log.Error("error converting link, storing original link", "error", res.Err, "status", res.StatusCode)
		r.metrics.RecordFallback(transport.EndpointConvert, "transport")
		r.store.Store(ctx, raw)
		return "", false
	}
	r.log.Debug("raw convert response", "body", res.Text())

	parsed := ParseShortLink(res.Text())
	if parsed.Kind == ParseFailed {
		r.log.Error("failed to parse convert response, storing original link", "error", parsed.Err, "body", res.Text())
		r.metrics.RecordFallback(transport.EndpointConvert, "parse")
		r.store.Store(ctx, raw)
		return "", false
	}
	if parsed.ShortLink == "" {
		r.log.Warn("empty convert response, storing original link", "kind", parsed.Kind.String(), "error", errEmptyShortLink)
		r.metrics.RecordFallback(transport.EndpointConvert, "empty")
		r.store.Store(ctx, raw)
		return "", false
	}

	r.log.Debug("short link received", "short_link", parsed.ShortLink, "kind", parsed.Kind.String())
	r.store.Store(ctx, parsed.ShortLink)
	return parsed.ShortLink, true
}
