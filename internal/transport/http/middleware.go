package transporthttp

import (
	"errors"
	"io"
	"net/http"
)

var errBodyTooLarge = errors.New("response body exceeds limit")

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// JSONHeaders sets the JSON content headers on every outgoing request.
func JSONHeaders(next http.RoundTripper) http.RoundTripper {
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		r = r.Clone(r.Context())
		r.Header.Set("Content-Type", "application/json")
		if r.Header.Get("Accept") == "" {
			r.Header.Set("Accept", "application/json, text/plain")
		}
		return next.RoundTrip(r)
	})
}

// ReadBody reads at most maxBytes from the response body.
func ReadBody(resp *http.Response, maxBytes int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > maxBytes {
		return b[:maxBytes], errBodyTooLarge
	}
	return b, nil
}

// DrainBody fully reads and closes response bodies so connections are reused.
func DrainBody(resp *http.Response) {
	if resp != nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}
}
