package attribution

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"example.com/affiliatesdk/internal/deviceid"
	"example.com/affiliatesdk/internal/domain"
	"example.com/affiliatesdk/internal/idempotency"
	"example.com/affiliatesdk/internal/metrics"
	"example.com/affiliatesdk/internal/storage"
)

// Store persists the attribution identifier, its stored timestamp and the
// derived metadata in the host KV store.
type Store struct {
	kv       storage.KV
	device   *deviceid.Identity
	notifier *Notifier
	window   time.Duration
	now      func() time.Time
	log      *slog.Logger
	metrics  *metrics.AttributionMetrics

	mu          sync.Mutex
	onShortCode func(code string)
}

// Option configures a Store.
type Option func(*Store)

// WithWindow sets the attribution window; zero disables expiry.
func WithWindow(d time.Duration) Option { return func(s *Store) { s.window = d } }

// WithClock overrides the wall clock used for timestamps and expiry.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.log = l } }

func WithMetrics(m *metrics.AttributionMetrics) Option { return func(s *Store) { s.metrics = m } }

func NewStore(kv storage.KV, device *deviceid.Identity, notifier *Notifier, opts ...Option) *Store {
	s := &Store{
		kv:       kv,
		device:   device,
		notifier: notifier,
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.notifier == nil {
		s.notifier = NewNotifier()
	}
	s.log = s.log.With("component", "attribution")
	return s
}

// OnShortCode registers the hook run after a real write whose canonical
// value is short-code shaped. The hook must not block.
func (s *Store) OnShortCode(fn func(code string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onShortCode = fn
}

// Store composes "{code}-{deviceId}" and persists it unless it equals the
// current identifier. Only a real write updates the timestamp, notifies
// listeners and triggers enrichment.
func (s *Store) Store(ctx context.Context, code string) string {
	candidate := idempotency.Identifier(code, s.device.GetOrCreate(ctx))

	s.mu.Lock()
	current := s.get(ctx, domain.KeyIdentifier)
	decision := idempotency.Decide(current, candidate)
	s.metrics.RecordStore(string(decision))
	if !decision.Writes() {
		s.mu.Unlock()
		s.log.Debug("same affiliate identifier already stored", "identifier", candidate)
		return candidate
	}

	if err := s.kv.Set(ctx, domain.KeyIdentifier, candidate); err != nil {
		s.log.Error("persist identifier failed", "error", err)
	}
	stamp := s.now().UTC().Format(domain.StoredDateLayout)
	if err := s.kv.Set(ctx, domain.KeyStoredDate, stamp); err != nil {
		s.log.Error("persist stored date failed", "error", err)
	}
	hook := s.onShortCode
	s.mu.Unlock()

	if decision == idempotency.DecisionReplace {
		s.log.Debug("replaced identifier", "previous", current, "identifier", candidate, "stored_at", stamp)
	} else {
		s.log.Debug("stored new identifier", "identifier", candidate, "stored_at", stamp)
	}

	s.notifier.Notify(candidate)
	if hook != nil && domain.IsShortCode(code) {
		hook(code)
	}
	return candidate
}

// Current returns the persisted identifier. Unless ignoreWindow is set, an
// identifier older than the window is reported absent; it stays stored.
func (s *Store) Current(ctx context.Context, ignoreWindow bool) (string, bool) {
	id := s.get(ctx, domain.KeyIdentifier)
	if id == "" {
		return "", false
	}
	if ignoreWindow || s.window <= 0 {
		return id, true
	}
	storedAt, ok := s.StoredDate(ctx)
	if !ok {
		s.log.Warn("stored date missing or unparsable, treating attribution as active")
		return id, true
	}
	if elapsed := s.now().Sub(storedAt); elapsed > s.window {
		s.log.Debug("attribution expired", "elapsed", elapsed.String(), "window", s.window.String())
		return "", false
	}
	return id, true
}

// IsValid reports whether a non-expired identifier exists.
func (s *Store) IsValid(ctx context.Context) bool {
	_, ok := s.Current(ctx, false)
	return ok
}

// StoredDate returns when the current identifier was written.
func (s *Store) StoredDate(ctx context.Context) (time.Time, bool) {
	raw := s.get(ctx, domain.KeyStoredDate)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(domain.StoredDateLayout, raw)
	if err != nil {
		s.log.Warn("failed to parse stored date", "value", raw, "error", err)
		return time.Time{}, false
	}
	return t, true
}

func (s *Store) OfferCode(ctx context.Context) string {
	return s.get(ctx, domain.KeyOfferCode)
}

func (s *Store) SetOfferCode(ctx context.Context, code string) error {
	return s.kv.Set(ctx, domain.KeyOfferCode, code)
}

// SaveEnrichment writes every field of rec; the first error is returned
// after all writes were attempted.
func (s *Store) SaveEnrichment(ctx context.Context, rec domain.EnrichmentRecord) error {
	var errs []error
	for _, kv := range [][2]string{
		{domain.KeyAffiliateName, rec.AffiliateName},
		{domain.KeyAffiliateShortCode, rec.AffiliateShortCode},
		{domain.KeyCompanyName, rec.CompanyName},
		{domain.KeyDeepLinkPayload, rec.RawPayload},
	} {
		if err := s.kv.Set(ctx, kv[0], kv[1]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) Enrichment(ctx context.Context) domain.EnrichmentRecord {
	return domain.EnrichmentRecord{
		AffiliateName:      s.get(ctx, domain.KeyAffiliateName),
		AffiliateShortCode: s.get(ctx, domain.KeyAffiliateShortCode),
		CompanyName:        s.get(ctx, domain.KeyCompanyName),
		RawPayload:         s.get(ctx, domain.KeyDeepLinkPayload),
	}
}

func (s *Store) AccountToken(ctx context.Context) string {
	return s.get(ctx, domain.KeyAccountToken)
}

func (s *Store) SetAccountToken(ctx context.Context, token string) error {
	return s.kv.Set(ctx, domain.KeyAccountToken, token)
}

// DeviceID exposes the per-install id used in identifiers.
func (s *Store) DeviceID(ctx context.Context) string {
	return s.device.GetOrCreate(ctx)
}

func (s *Store) Notifier() *Notifier { return s.notifier }

func (s *Store) get(ctx context.Context, key string) string {
	v, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("read failed", "key", key, "error", err)
		}
		return ""
	}
	return v
}
