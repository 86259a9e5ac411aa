package qastore

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/armatrix/agent-broadcast-go/broadcast"
)

// ErrSessionNotFound is returned by Delete for unknown sessions.
var ErrSessionNotFound = errors.New("qastore: session not found")

// Store is a broadcast.HistoryStore that can also enumerate and remove
// sessions.
type Store interface {
	broadcast.HistoryStore
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// Open picks a store for path: memory when empty, SQLite for .db, .sqlite
// and .sqlite3 files, and a FileStore directory otherwise.
func Open(path string) (Store, error) {
	if path == "" {
		return NewMemoryStore(), nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteStore(path)
	}
	return NewFileStore(path)
}
