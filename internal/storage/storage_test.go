package storage_test

import (
	"testing"

	"example.com/affiliatesdk/internal/storage"
	"example.com/affiliatesdk/internal/storage/storagetest"
)

func TestMemKV(t *testing.T) {
	storagetest.Run(t, storage.NewMemKV())
}
