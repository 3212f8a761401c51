// Package engine is the public surface of the attribution SDK: it resolves
// referrals into a persisted affiliate identifier, exposes it to dependent
// subsystems and reports events against it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"example.com/affiliatesdk/internal/attribution"
	"example.com/affiliatesdk/internal/deviceid"
	"example.com/affiliatesdk/internal/domain"
	"example.com/affiliatesdk/internal/enrichment"
	"example.com/affiliatesdk/internal/metrics"
	"example.com/affiliatesdk/internal/resolver"
	"example.com/affiliatesdk/internal/storage"
	"example.com/affiliatesdk/internal/tasks"
	transport "example.com/affiliatesdk/internal/transport/http"
)

// Settings is the immutable configuration captured by Init.
type Settings struct {
	CompanyCode        string
	Verbose            bool
	InsertLinksEnabled bool
	// AttributionWindow bounds how long a stored identifier stays valid;
	// zero means it never expires.
	AttributionWindow    time.Duration
	BaseURL              string
	HTTPTimeout          time.Duration
	AccountTokenOverride string
}

// ResolveCallback receives the resolved short link, or ok=false when the
// conversion failed. Storage happens either way.
type ResolveCallback func(shortLink string, ok bool)

// TokenCallback receives the resolved account token.
type TokenCallback func(token string)

type components struct {
	settings Settings
	store    *attribution.Store
	api      *transport.Client
	resolver *resolver.Resolver
	fetcher  *enrichment.Fetcher
}

type Engine struct {
	kv        storage.KV
	log       *slog.Logger
	level     *slog.LevelVar
	now       func() time.Time
	runner    *tasks.Runner
	ownRunner bool
	transport http.RoundTripper
	metrics   *metrics.AttributionMetrics
	notifier  *attribution.Notifier
	device    *deviceid.Identity

	mu            sync.RWMutex
	c             *components
	tokenOverride string
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

// WithLevel lets Init raise the log level to debug when Verbose is set.
func WithLevel(lv *slog.LevelVar) Option { return func(e *Engine) { e.level = lv } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithRunner supplies a caller-owned runner; the caller starts and stops it.
func WithRunner(r *tasks.Runner) Option { return func(e *Engine) { e.runner = r } }

func WithTransport(rt http.RoundTripper) Option { return func(e *Engine) { e.transport = rt } }

func WithMetrics(m *metrics.AttributionMetrics) Option { return func(e *Engine) { e.metrics = m } }

// New builds an uninitialised engine over kv.
func New(kv storage.KV, opts ...Option) *Engine {
	e := &Engine{
		kv:       kv,
		log:      slog.Default(),
		now:      time.Now,
		notifier: attribution.NewNotifier(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.metrics == nil {
		e.metrics = metrics.Attribution()
	}
	if e.runner == nil {
		e.runner = tasks.NewRunner(64, 4, e.log)
		e.ownRunner = true
	}
	e.log = e.log.With("component", "engine")
	e.device = deviceid.New(kv, e.log)
	return e
}

// Init captures settings once. A second call, or an empty company code,
// is rejected without changing state.
func (e *Engine) Init(ctx context.Context, s Settings) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.c != nil {
		e.log.Warn("sdk is already initialized")
		return domain.ErrAlreadyInitialized
	}
	s.CompanyCode = strings.TrimSpace(s.CompanyCode)
	if s.CompanyCode == "" {
		e.log.Error("company code cannot be empty")
		return domain.ErrEmptyCompanyCode
	}
	if s.AttributionWindow < 0 {
		return fmt.Errorf("attribution window must not be negative: %s", s.AttributionWindow)
	}
	if s.Verbose && e.level != nil {
		e.level.Set(slog.LevelDebug)
	}

	store := attribution.NewStore(e.kv, e.device, e.notifier,
		attribution.WithWindow(s.AttributionWindow),
		attribution.WithClock(e.now),
		attribution.WithLogger(e.log),
		attribution.WithMetrics(e.metrics),
	)
	api := transport.NewClient(transport.Config{
		BaseURL:   s.BaseURL,
		Timeout:   s.HTTPTimeout,
		Transport: e.transport,
	}, e.log, e.metrics)
	c := &components{
		settings: s,
		store:    store,
		api:      api,
		resolver: resolver.New(api, store, s.CompanyCode, e.log, e.metrics),
		fetcher:  enrichment.New(api, store, s.CompanyCode, e.log, e.metrics),
	}
	store.OnShortCode(func(code string) {
		e.runner.Go("offer-code", func(ctx context.Context) {
			c.fetcher.FetchOfferCode(ctx, code)
		})
	})
	if e.ownRunner {
		e.runner.Start(context.Background())
	}

	e.device.GetOrCreate(ctx)
	e.c = c

	window := "none"
	if s.AttributionWindow > 0 {
		window = s.AttributionWindow.String()
	}
	e.log.Info("sdk initialized",
		"company_code", s.CompanyCode,
		"verbose", s.Verbose,
		"insert_links", s.InsertLinksEnabled,
		"attribution_window", window)
	return nil
}

func (e *Engine) IsInitialized() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.c != nil
}

func (e *Engine) ready() (*components, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.c == nil {
		e.log.Error("sdk not initialized, call Init first")
		return nil, domain.ErrNotInitialized
	}
	return e.c, nil
}

// SetFromReferral resolves a referring link (deep link or short code) and
// stores the resulting identifier. Short-code input is stored before
// returning; anything else is converted asynchronously.
func (e *Engine) SetFromReferral(ctx context.Context, raw string, cb ResolveCallback) error {
	if cb == nil {
		cb = func(string, bool) {}
	}
	c, err := e.ready()
	if err != nil {
		cb("", false)
		return err
	}
	if strings.TrimSpace(raw) == "" {
		e.log.Warn("referring link is empty")
		cb("", false)
		return domain.ErrEmptyReferral
	}

	if domain.IsShortCode(raw) {
		link, ok := c.resolver.Resolve(ctx, raw)
		cb(link, ok)
		return nil
	}
	e.runner.Go("resolve-link", func(ctx context.Context) {
		link, ok := c.resolver.Resolve(ctx, raw)
		cb(link, ok)
	})
	return nil
}

// SetFromShortCode validates a manually entered code and asks the backend
// to confirm it. The identifier is stored only for a confirmed affiliate.
func (e *Engine) SetFromShortCode(ctx context.Context, code string) error {
	c, err := e.ready()
	if err != nil {
		return err
	}
	upper, err := domain.NormalizeShortCode(code)
	if err != nil {
		e.log.Error("rejected short code", "code", code, "error", err)
		return err
	}
	e.log.Debug("checking short code", "code", upper)
	e.runner.Go("check-affiliate", func(ctx context.Context) {
		c.fetcher.FetchAffiliateMetadata(ctx, upper)
	})
	return nil
}

// CurrentIdentifier returns the stored identifier, honouring the
// attribution window unless ignoreWindow is set.
func (e *Engine) CurrentIdentifier(ctx context.Context, ignoreWindow bool) (string, bool) {
	c, err := e.ready()
	if err != nil {
		return "", false
	}
	return c.store.Current(ctx, ignoreWindow)
}

func (e *Engine) IsAttributionValid(ctx context.Context) bool {
	_, ok := e.CurrentIdentifier(ctx, false)
	return ok
}

// StoredDate returns when the current identifier was stored.
func (e *Engine) StoredDate(ctx context.Context) (time.Time, bool) {
	c, err := e.ready()
	if err != nil {
		return time.Time{}, false
	}
	return c.store.StoredDate(ctx)
}

func (e *Engine) OfferCode(ctx context.Context) string {
	c, err := e.ready()
	if err != nil {
		return ""
	}
	return c.store.OfferCode(ctx)
}

func (e *Engine) AffiliateDetails(ctx context.Context) domain.EnrichmentRecord {
	c, err := e.ready()
	if err != nil {
		return domain.EnrichmentRecord{}
	}
	return c.store.Enrichment(ctx)
}

// Subscribe registers fn for identifier changes. Subscriptions may be made
// before Init.
func (e *Engine) Subscribe(fn attribution.Listener) (unsubscribe func()) {
	return e.notifier.Subscribe(fn)
}

// SetIdentifierCallback sets the single-slot change callback; nil clears it.
func (e *Engine) SetIdentifierCallback(fn attribution.Listener) {
	e.notifier.SetCallback(fn)
}

// Wait blocks until all in-flight resolution chains have finished.
func (e *Engine) Wait() { e.runner.Wait() }

// Shutdown waits for in-flight chains or until ctx is done, then stops the
// engine's own workers. A runner supplied through WithRunner is only waited
// on; its owner stops it.
func (e *Engine) Shutdown(ctx context.Context) error {
	if e.ownRunner {
		return e.runner.Shutdown(ctx)
	}
	done := make(chan struct{})
	go func() {
		e.runner.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close is Shutdown without a deadline.
func (e *Engine) Close() error {
	return e.Shutdown(context.Background())
}
