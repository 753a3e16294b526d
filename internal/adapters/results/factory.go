// Package results provides the persistence backends for deliberation
// records: an append-only JSONL file compatible with the offline tooling,
// and a SQLite store for querying.
package results

import (
	"path/filepath"
	"strings"

	"github.com/medquorum/medquorum/internal/core"
)

// Backend names accepted by the factory.
const (
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// ValidBackend reports whether name is a known store backend.
func ValidBackend(name string) bool {
	return name == BackendJSONL || name == BackendSQLite
}

// NewStore creates a ResultStore of the given backend at path. For sqlite
// the path extension is normalized to .db.
func NewStore(backend, path string) (core.ResultStore, error) {
	switch backend {
	case BackendJSONL:
		return NewJSONLStore(path)
	case BackendSQLite:
		if !strings.HasSuffix(path, ".db") {
			path = strings.TrimSuffix(path, filepath.Ext(path)) + ".db"
		}
		return NewSQLiteStore(path)
	default:
		return nil, core.ErrValidation(core.CodeInvalidConfig,
			"unknown results backend: "+backend)
	}
}

// Closeable is an optional interface for stores that need cleanup.
type Closeable interface {
	Close() error
}

// CloseStore safely closes a ResultStore if it implements Closeable.
func CloseStore(store core.ResultStore) error {
	if closeable, ok := store.(Closeable); ok {
		return closeable.Close()
	}
	return nil
}
