package transporthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"example.com/affiliatesdk/internal/metrics"
)

const DefaultBaseURL = "https://api.insertaffiliate.com"

// Backend paths.
const (
	PathConvertDeepLink     = "/V1/convert-deep-link-to-short-link"
	PathOfferCode           = "/v1/affiliateReturnOfferCode"
	PathCheckAffiliate      = "/V1/checkAffiliateExists"
	PathTrackEvent          = "/v1/trackEvent"
	PathExpectedTransaction = "/v1/api/app-store-webhook/create-expected-transaction"
)

// Endpoint names used for metrics and logs.
const (
	EndpointConvert     = "convert_deep_link"
	EndpointOfferCode   = "offer_code"
	EndpointCheck       = "check_affiliate"
	EndpointTrackEvent  = "track_event"
	EndpointTransaction = "expected_transaction"
)

const defaultMaxResponseBytes = 1 << 20

// Result is the outcome of one backend call. Success is true only for a
// completed round trip with a 2xx status.
type Result struct {
	Success    bool
	StatusCode int
	Body       []byte
	Err        error
}

// Text returns the body as a string.
func (r Result) Text() string { return string(r.Body) }

// Config defines the HTTP client settings.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	MaxResponseBytes int64
	Transport        http.RoundTripper
}

// Client performs single-attempt GET/POST calls against the attribution API.
type Client struct {
	baseURL  string
	maxBytes int64
	http     *http.Client
	log      *slog.Logger
	metrics  *metrics.AttributionMetrics
}

func NewClient(cfg Config, log *slog.Logger, m *metrics.AttributionMetrics) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxBytes := cfg.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxResponseBytes
	}
	rt := cfg.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:  base,
		maxBytes: maxBytes,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(JSONHeaders(rt)),
		},
		log:     log.With("component", "api"),
		metrics: m,
	}
}

// Get issues a GET to path with optional query parameters.
func (c *Client) Get(ctx context.Context, endpoint, path string, query url.Values) Result {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Result{Err: fmt.Errorf("build request: %w", err)}
	}
	return c.do(endpoint, req)
}

// PostJSON issues a POST with payload encoded as JSON.
func (c *Client) PostJSON(ctx context.Context, endpoint, path string, payload any) Result {
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Err: fmt.Errorf("encode payload: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Result{Err: fmt.Errorf("build request: %w", err)}
	}
	return c.do(endpoint, req)
}

func (c *Client) do(endpoint string, req *http.Request) Result {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(endpoint, "transport_error", time.Since(start))
		c.log.Debug("request failed", "endpoint", endpoint, "error", err)
		return Result{Err: err}
	}
	defer DrainBody(resp)

	body, err := ReadBody(resp, c.maxBytes)
	res := Result{
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Body:       body,
	}
	if err != nil {
		res.Success = false
		res.Err = fmt.Errorf("read body: %w", err)
	} else if !res.Success {
		res.Err = DescribeFailure(resp.StatusCode, body)
	}

	outcome := "success"
	if !res.Success {
		outcome = fmt.Sprintf("status_%d", resp.StatusCode)
	}
	c.metrics.ObserveRequest(endpoint, outcome, time.Since(start))
	c.log.Debug("request completed", "endpoint", endpoint, "status", resp.StatusCode)
	return res
}
