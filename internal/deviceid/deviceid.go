package deviceid

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"example.com/affiliatesdk/internal/domain"
	"example.com/affiliatesdk/internal/storage"
)

// Identity owns the short per-install device identifier.
type Identity struct {
	kv     storage.KV
	log    *slog.Logger
	newID  func() string
	mu     sync.Mutex
	cached string
}

func New(kv storage.KV, log *slog.Logger) *Identity {
	if log == nil {
		log = slog.Default()
	}
	return &Identity{kv: kv, log: log.With("component", "deviceid"), newID: uuid.NewString}
}

// GetOrCreate returns the persisted device id, generating and persisting one
// on first use. A failed write is logged and the generated value is still
// returned for the current cycle.
func (d *Identity) GetOrCreate(ctx context.Context) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cached != "" {
		return d.cached
	}

	v, err := d.kv.Get(ctx, domain.KeyDeviceID)
	switch {
	case err == nil && v != "":
		d.cached = v
		return v
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		d.log.Warn("read device id failed", "error", err)
	}

	id := Derive(d.newID())
	if err := d.kv.Set(ctx, domain.KeyDeviceID, id); err != nil {
		d.log.Error("persist device id failed", "error", err)
	}
	d.log.Debug("generated short unique device id", "device_id", id)
	d.cached = id
	return id
}

// Derive reduces seed to six upper-case hex digits.
func Derive(seed string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	return fmt.Sprintf("%06X", h.Sum32()%0xFFFFFF)
}
