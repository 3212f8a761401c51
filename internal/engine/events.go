package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"example.com/affiliatesdk/internal/domain"
	"example.com/affiliatesdk/internal/logging"
	transport "example.com/affiliatesdk/internal/transport/http"
)

// TrackEvent reports eventName against the current, non-expired identifier.
// The POST runs asynchronously and is not retried.
func (e *Engine) TrackEvent(ctx context.Context, eventName string) error {
	c, err := e.ready()
	if err != nil {
		return err
	}
	eventName = strings.TrimSpace(eventName)
	if eventName == "" {
		return domain.FieldError{Field: "event_name", Msg: "required"}
	}
	id, ok := c.store.Current(ctx, false)
	if !ok {
		e.log.Warn("no valid affiliate identifier found or attribution expired", "event", eventName)
		return domain.ErrNoValidIdentifier
	}

	payload := domain.EventPayload{
		EventName:     eventName,
		DeepLinkParam: id,
		CompanyID:     c.settings.CompanyCode,
	}
	e.runner.Go("track-event", func(ctx context.Context) {
		res := c.api.PostJSON(ctx, transport.EndpointTrackEvent, transport.PathTrackEvent, payload)
		if !res.Success {
			e.log.Error("failed to track event", "event", eventName, "status", res.StatusCode, "error", res.Err)
			return
		}
		e.log.Debug("event tracked", "event", eventName)
	})
	return nil
}

// SetAccountTokenOverride pins the account token used by later calls; an
// empty value clears it. Intended for testing purchase flows.
func (e *Engine) SetAccountTokenOverride(token string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tokenOverride = strings.TrimSpace(token)
}

// AccountToken resolves the account token: override argument, then the
// static override, then the persisted value, then a fresh UUID. Override
// and generated tokens are persisted.
func (e *Engine) AccountToken(ctx context.Context, override string) (string, error) {
	c, err := e.ready()
	if err != nil {
		return "", err
	}
	return e.resolveToken(ctx, c, override), nil
}

func (e *Engine) resolveToken(ctx context.Context, c *components, override string) string {
	e.mu.RLock()
	static := e.tokenOverride
	e.mu.RUnlock()
	if static == "" {
		static = c.settings.AccountTokenOverride
	}

	for _, candidate := range []struct{ source, value string }{
		{"argument", override},
		{"static_override", static},
	} {
		v := strings.TrimSpace(candidate.value)
		if v == "" {
			continue
		}
		parsed, err := uuid.Parse(v)
		if err != nil {
			e.log.Warn("ignoring malformed account token override", "source", candidate.source, "token", logging.MaskValue(v))
			continue
		}
		token := parsed.String()
		e.persistToken(ctx, c, token, candidate.source)
		return token
	}

	if stored := c.store.AccountToken(ctx); stored != "" {
		return stored
	}
	token := uuid.NewString()
	e.persistToken(ctx, c, token, "generated")
	return token
}

func (e *Engine) persistToken(ctx context.Context, c *components, token, source string) {
	if err := c.store.SetAccountToken(ctx, token); err != nil {
		e.log.Error("persist account token failed", "source", source, "error", err)
		return
	}
	e.log.Debug("account token stored", "source", source, "token", logging.MaskValue(token))
}

// AccountTokenAndRecordExpectedTransaction resolves the account token and,
// when a valid identifier exists, records an expected transaction for it.
// cb always receives the token once the sequence completes, whatever the
// outcome of the POST.
func (e *Engine) AccountTokenAndRecordExpectedTransaction(ctx context.Context, override string, cb TokenCallback) error {
	if cb == nil {
		cb = func(string) {}
	}
	c, err := e.ready()
	if err != nil {
		return err
	}
	e.runner.Go("expected-transaction", func(ctx context.Context) {
		token := e.resolveToken(ctx, c, override)
		defer cb(token)

		id, ok := c.store.Current(ctx, false)
		if !ok {
			e.log.Debug("no valid affiliate identifier, skipping expected transaction")
			return
		}
		res := c.api.PostJSON(ctx, transport.EndpointTransaction, transport.PathExpectedTransaction, domain.ExpectedTransaction{
			CompanyID:           c.settings.CompanyCode,
			AffiliateIdentifier: id,
			AppAccountToken:     token,
		})
		if !res.Success {
			e.log.Error("failed to record expected transaction", "status", res.StatusCode, "error", res.Err)
			return
		}
		e.log.Debug("expected transaction recorded", "identifier", id)
	})
	return nil
}
