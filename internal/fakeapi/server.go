// Package fakeapi is an in-process stand-in for the attribution backend,
// used by tests to drive every success and failure branch of the SDK.
package fakeapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"example.com/affiliatesdk/internal/domain"
	transport "example.com/affiliatesdk/internal/transport/http"
)

// Call is one request observed by the server.
type Call struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type reply struct {
	status int
	body   string
	delay  time.Duration
}

type Server struct {
	mu           sync.Mutex
	convert      map[string]reply
	convertAll   *reply
	offerCodes   map[string]reply
	affiliates   map[string]domain.AffiliateInfo
	checkStatus  int
	eventStatus  int
	calls        []Call
	events       []domain.EventPayload
	transactions []domain.ExpectedTransaction
}

func New() *Server {
	return &Server{
		convert:    make(map[string]reply),
		offerCodes: make(map[string]reply),
		affiliates: make(map[string]domain.AffiliateInfo),
	}
}

// SetConvert configures the reply for one deep link.
func (s *Server) SetConvert(deepLink string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convert[deepLink] = reply{status: status, body: body}
}

// SetConvertDelay makes every conversion wait before answering.
func (s *Server) SetConvertDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convertAll = &reply{status: http.StatusOK, body: `{"shortLink":"LATE"}`, delay: d}
}

func (s *Server) SetOfferCode(code string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offerCodes[code] = reply{status: status, body: body}
}

func (s *Server) AddAffiliate(code string, info domain.AffiliateInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.affiliates[code] = info
}

// FailCheck forces the affiliate lookup to answer with status.
func (s *Server) FailCheck(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkStatus = status
}

// FailEvents forces trackEvent and expected-transaction calls to answer with status.
func (s *Server) FailEvents(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventStatus = status
}

func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount counts observed requests to path.
func (s *Server) CallCount(path string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) Events() []domain.EventPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EventPayload, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Server) Transactions() []domain.ExpectedTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ExpectedTransaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// Router returns the chi router serving the backend endpoints.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Get(transport.PathConvertDeepLink, s.handleConvert)
	r.Get(transport.PathOfferCode+"/{code}", s.handleOfferCode)
	r.Post(transport.PathCheckAffiliate, s.handleCheck)
	r.Post(transport.PathTrackEvent, s.handleTrackEvent)
	r.Post(transport.PathExpectedTransaction, s.handleTransaction)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"Route not found"}`, http.StatusNotFound)
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		s.mu.Lock()
		s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})
		s.mu.Unlock()
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	link := r.URL.Query().Get("deepLinkUrl")
	s.mu.Lock()
	rep, ok := s.convert[link]
	if s.convertAll != nil {
		rep, ok = *s.convertAll, true
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if rep.delay > 0 {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(rep.delay):
		}
	}
	writeReply(w, rep)
}

func (s *Server) handleOfferCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	s.mu.Lock()
	rep, ok := s.offerCodes[code]
	s.mu.Unlock()
	if !ok {
		http.Error(w, `{"error":"Route not found"}`, http.StatusNotFound)
		return
	}
	writeReply(w, rep)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req domain.AffiliateCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	status := s.checkStatus
	info, ok := s.affiliates[req.AffiliateCode]
	s.mu.Unlock()
	if status != 0 {
		http.Error(w, "lookup failed", status)
		return
	}
	resp := domain.AffiliateCheckResponse{Exists: ok}
	if ok {
		resp.Affiliate = &info
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleTrackEvent(w http.ResponseWriter, r *http.Request) {
	var ev domain.EventPayload
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	status := s.eventStatus
	if status == 0 {
		s.events = append(s.events, ev)
	}
	s.mu.Unlock()
	if status != 0 {
		http.Error(w, "event rejected", status)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	var tx domain.ExpectedTransaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	status := s.eventStatus
	if status == 0 {
		s.transactions = append(s.transactions, tx)
	}
	s.mu.Unlock()
	if status != 0 {
		http.Error(w, "transaction rejected", status)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func writeReply(w http.ResponseWriter, rep reply) {
	status := rep.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, rep.body)
}
