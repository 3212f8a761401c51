package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"example.com/affiliatesdk/internal/storage"
)

// KV keeps SDK state in a single-table SQLite database.
type KV struct {
	db *sql.DB
}

var _ storage.KV = (*KV)(nil)

func Open(path string) (*KV, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	kv := &KV{db: db}
	if err := kv.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return kv, nil
}

func (k *KV) init() error {
	_, err := k.db.Exec(`CREATE TABLE IF NOT EXISTS kv (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            updated_at TIMESTAMP NOT NULL
        );`)
	if err != nil {
		return fmt.Errorf("init sqlite schema: %w", err)
	}
	return nil
}

func (k *KV) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := k.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

func (k *KV) Set(ctx context.Context, key, value string) error {
	const stmt = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := k.db.ExecContext(ctx, stmt, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (k *KV) Has(ctx context.Context, key string) (bool, error) {
	var n int
	if err := k.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM kv WHERE key = ?`, key).Scan(&n); err != nil {
		return false, fmt.Errorf("has %s: %w", key, err)
	}
	return n > 0, nil
}

func (k *KV) Delete(ctx context.Context, key string) error {
	if _, err := k.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (k *KV) Close() error {
	return k.db.Close()
}
