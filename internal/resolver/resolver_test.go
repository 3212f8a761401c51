package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	transport "example.com/affiliatesdk/internal/transport/http"
)

type stubAPI struct {
	res   transport.Result
	calls []url.Values
}

func (s *stubAPI) Get(_ context.Context, _, _ string, q url.Values) transport.Result {
	s.calls = append(s.calls, q)
	return s.res
}

type recordingStore struct{ codes []string }

func (r *recordingStore) Store(_ context.Context, code string) string {
	r.codes = append(r.codes, code)
	return code + "-DEVICE"
}

func TestParseShortLink(t *testing.T) {
	cases := []struct {
		body string
		kind ParseKind
		link string
	}{
		{`{"shortLink":"PROMO99"}`, ParsedObject, "PROMO99"},
		{`  {"shortLink":"PROMO99"}`, ParsedObject, "PROMO99"},
		{`{"other":1}`, ParsedObject, ""},
		{`"PROMO99"` + "\n", ParsedPlain, "PROMO99"},
		{"PROMO99\r\n", ParsedPlain, "PROMO99"},
		{`""`, ParsedPlain, ""},
		{`{"shortLink":`, ParseFailed, ""},
	}
	for _, tc := range cases {
		got := ParseShortLink(tc.body)
		require.Equal(t, tc.kind, got.Kind, tc.body)
		require.Equal(t, tc.link, got.ShortLink, tc.body)
	}
}

func TestResolveShortCodeSkipsNetwork(t *testing.T) {
	api := &stubAPI{}
	st := &recordingStore{}
	link, ok := New(api, st, "ABC123", nil, nil).Resolve(context.Background(), "XYZ9Z")
	require.True(t, ok)
	require.Equal(t, "XYZ9Z", link)
	require.Empty(t, api.calls)
	require.Equal(t, []string{"XYZ9Z"}, st.codes)
}

func TestResolveBranches(t *testing.T) {
	const raw = "https://app.example.com/ref?campaign=spring"
	cases := []struct {
		name   string
		res    transport.Result
		link   string
		ok     bool
		stored string
	}{
		{"object", transport.Result{Success: true, StatusCode: 200, Body: []byte(`{"shortLink":"PROMO99"}`)}, "PROMO99", true, "PROMO99"},
		{"plain", transport.Result{Success: true, StatusCode: 200, Body: []byte(`"PROMO99"`)}, "PROMO99", true, "PROMO99"},
		{"transport", transport.Result{Err: errors.New("dial tcp: timeout")}, "", false, raw},
		{"status", transport.Result{StatusCode: http.StatusInternalServerError}, "", false, raw},
		{"parse", transport.Result{Success: true, StatusCode: 200, Body: []byte(`{"shortLink":`)}, "", false, raw},
		{"empty", transport.Result{Success: true, StatusCode: 200, Body: []byte(`{"shortLink":""}`)}, "", false, raw},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &stubAPI{res: tc.res}
			st := &recordingStore{}
			link, ok := New(api, st, "ABC123", nil, nil).Resolve(context.Background(), raw)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.link, link)
			require.Equal(t, []string{tc.stored}, st.codes, "exactly one store per resolution")
			require.Len(t, api.calls, 1)
			require.Equal(t, "ABC123", api.calls[0].Get("companyId"))
			require.Equal(t, raw, api.calls[0].Get("deepLinkUrl"))
		})
	}
}
