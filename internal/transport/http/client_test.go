package transporthttp_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/affiliatesdk/internal/domain"
	"example.com/affiliatesdk/internal/fakeapi"
	transport "example.com/affiliatesdk/internal/transport/http"
)

func newClient(t *testing.T, api *fakeapi.Server, timeout time.Duration) *transport.Client {
	t.Helper()
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	return transport.NewClient(transport.Config{BaseURL: srv.URL + "/", Timeout: timeout}, nil, nil)
}

func TestGetSuccess(t *testing.T) {
	api := fakeapi.New()
	api.SetConvert("https://example.com/x?y=1", http.StatusOK, `{"shortLink":"PROMO99"}`)
	c := newClient(t, api, time.Second)

	res := c.Get(context.Background(), transport.EndpointConvert, transport.PathConvertDeepLink,
		url.Values{"companyId": {"ABC123"}, "deepLinkUrl": {"https://example.com/x?y=1"}})
	require.True(t, res.Success)
	require.NoError(t, res.Err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.JSONEq(t, `{"shortLink":"PROMO99"}`, res.Text())

	calls := api.Calls()
	require.Len(t, calls, 1)
	q, err := url.ParseQuery(calls[0].Query)
	require.NoError(t, err)
	require.Equal(t, "ABC123", q.Get("companyId"))
	require.Equal(t, "https://example.com/x?y=1", q.Get("deepLinkUrl"))
}

func TestNon2xxIsFailureWithStatus(t *testing.T) {
	api := fakeapi.New()
	c := newClient(t, api, time.Second)

	res := c.Get(context.Background(), transport.EndpointOfferCode, transport.PathOfferCode+"/NOPE", nil)
	require.False(t, res.Success)
	require.Equal(t, http.StatusNotFound, res.StatusCode)

	var se *transport.StatusError
	require.True(t, errors.As(res.Err, &se))
	require.Equal(t, http.StatusNotFound, se.StatusCode)
	require.Contains(t, se.Error(), "Route not found")
}

func TestPostJSON(t *testing.T) {
	api := fakeapi.New()
	c := newClient(t, api, time.Second)

	res := c.PostJSON(context.Background(), transport.EndpointTrackEvent, transport.PathTrackEvent,
		domain.EventPayload{EventName: "purchase", DeepLinkParam: "PROMO99-0A1B2C", CompanyID: "ABC123"})
	require.True(t, res.Success)
	require.Equal(t, []domain.EventPayload{{EventName: "purchase", DeepLinkParam: "PROMO99-0A1B2C", CompanyID: "ABC123"}}, api.Events())
}

func TestTimeoutIsTransportFailure(t *testing.T) {
	api := fakeapi.New()
	api.SetConvertDelay(500 * time.Millisecond)
	c := newClient(t, api, 50*time.Millisecond)

	res := c.Get(context.Background(), transport.EndpointConvert, transport.PathConvertDeepLink, nil)
	require.False(t, res.Success)
	require.Zero(t, res.StatusCode)
	require.Error(t, res.Err)
}

func TestJSONHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := transport.NewClient(transport.Config{BaseURL: srv.URL}, nil, nil)
	res := c.Get(context.Background(), "probe", "/", nil)
	require.True(t, res.Success)
	require.Equal(t, "application/json", got.Get("Content-Type"))
}

func TestResponseLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	c := transport.NewClient(transport.Config{BaseURL: srv.URL, MaxResponseBytes: 16}, nil, nil)
	res := c.Get(context.Background(), "probe", "/", nil)
	require.False(t, res.Success)
	require.Len(t, res.Body, 16)
	require.Error(t, res.Err)
}
