package leveldb

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"

	"example.com/affiliatesdk/internal/storage"
)

// KV is a persistent key/value store backed by LevelDB. It is the default
// backend for hosts that keep SDK state on the local filesystem.
type KV struct {
	db *leveldb.DB
}

var _ storage.KV = (*KV)(nil)

// Open creates or opens a LevelDB database at the specified path.
func Open(path string) (*KV, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &KV{db: db}, nil
}

func (k *KV) Get(_ context.Context, key string) (string, error) {
	v, err := k.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return string(v), nil
}

func (k *KV) Set(_ context.Context, key, value string) error {
	return k.db.Put([]byte(key), []byte(value), nil)
}

func (k *KV) Has(_ context.Context, key string) (bool, error) {
	return k.db.Has([]byte(key), nil)
}

func (k *KV) Delete(_ context.Context, key string) error {
	return k.db.Delete([]byte(key), nil)
}

// Close closes the database.
func (k *KV) Close() error {
	return k.db.Close()
}
