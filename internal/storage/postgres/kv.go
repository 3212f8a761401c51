package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"example.com/affiliatesdk/internal/storage"
)

// KV stores SDK state in the affiliate_kv table, scoped by namespace so that
// several installs can share one database.
type KV struct {
	db        *DB
	namespace string
}

var _ storage.KV = (*KV)(nil)

func NewKV(db *DB, namespace string) *KV { return &KV{db: db, namespace: namespace} }

func (k *KV) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := k.db.Pool.QueryRow(ctx,
		"SELECT value FROM affiliate_kv WHERE namespace=$1 AND key=$2", k.namespace, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

// Set upserts the value; last writer wins.
func (k *KV) Set(ctx context.Context, key, value string) error {
	_, err := k.db.Pool.Exec(ctx, `
INSERT INTO affiliate_kv (namespace, key, value, updated_at) VALUES ($1, $2, $3, now())
ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		k.namespace, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (k *KV) Has(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := k.db.Pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM affiliate_kv WHERE namespace=$1 AND key=$2)", k.namespace, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has %s: %w", key, err)
	}
	return exists, nil
}

func (k *KV) Delete(ctx context.Context, key string) error {
	if _, err := k.db.Pool.Exec(ctx,
		"DELETE FROM affiliate_kv WHERE namespace=$1 AND key=$2", k.namespace, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying pool.
func (k *KV) Close() error {
	k.db.Close()
	return nil
}
