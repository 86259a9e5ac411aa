package qastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/armatrix/agent-broadcast-go/broadcast"
)

// FileStore persists sessions as individual JSON files in a directory.
// Each session is stored as {id}.json and rewritten atomically on append.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore that saves sessions to the given directory.
// The directory is created if it does not exist.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create qa dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// sessionJSON is the on-disk representation of a session.
type sessionJSON struct {
	ID        string              `json:"id"`
	Entries   []broadcast.QAEntry `json:"entries"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Load reads a session's entries. A missing file means no entries.
func (f *FileStore) Load(_ context.Context, sessionID string) ([]broadcast.QAEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.read(sessionID)
	if err != nil {
		return nil, err
	}
	return data.Entries, nil
}

// Append adds one entry and rewrites the session file.
func (f *FileStore) Append(_ context.Context, sessionID string, e broadcast.QAEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read(sessionID)
	if err != nil {
		return err
	}
	data.ID = sessionID
	data.Entries = append(data.Entries, e)
	data.UpdatedAt = time.Now()

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal qa session: %w", err)
	}
	tmp := f.path(sessionID) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write qa file: %w", err)
	}
	if err := os.Rename(tmp, f.path(sessionID)); err != nil {
		return fmt.Errorf("replace qa file: %w", err)
	}
	return nil
}

// List returns the ids of all stored sessions, sorted.
func (f *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("read qa dir: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a session file from disk.
func (f *FileStore) Delete(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path(sessionID)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return fmt.Errorf("remove qa file: %w", err)
	}
	return nil
}

// Close is a no-op.
func (f *FileStore) Close() error { return nil }

func (f *FileStore) read(sessionID string) (sessionJSON, error) {
	var data sessionJSON
	b, err := os.ReadFile(f.path(sessionID))
	if errors.Is(err, os.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return data, fmt.Errorf("read qa file: %w", err)
	}
	if err := json.Unmarshal(b, &data); err != nil {
		return data, fmt.Errorf("unmarshal qa session: %w", err)
	}
	return data, nil
}

func (f *FileStore) path(id string) string {
	return filepath.Join(f.dir, filepath.Base(id)+".json")
}
