package qastore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/armatrix/agent-broadcast-go/broadcast"
)

// SQLiteStore keeps the Q&A log of every session in one SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path. The schema is
// created if it doesn't exist; parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "qastore")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer at a time; SQLite would otherwise report SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite qa store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS qa_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			answered_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_qa_entries_session
			ON qa_entries(session_id, id);
	`)
	return err
}

// Load returns the session's entries in answer order.
func (s *SQLiteStore) Load(ctx context.Context, sessionID string) ([]broadcast.QAEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question, answer, answered_at
		FROM qa_entries
		WHERE session_id = ?
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying qa entries: %w", err)
	}
	defer rows.Close()

	var entries []broadcast.QAEntry
	for rows.Next() {
		var (
			e          broadcast.QAEntry
			answeredAt string
		)
		if err := rows.Scan(&e.Question, &e.Answer, &answeredAt); err != nil {
			return nil, fmt.Errorf("scanning qa entry: %w", err)
		}
		e.AnsweredAt, err = time.Parse(time.RFC3339Nano, answeredAt)
		if err != nil {
			return nil, fmt.Errorf("parsing answered_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating qa entries: %w", err)
	}
	return entries, nil
}

// Append records one entry.
func (s *SQLiteStore) Append(ctx context.Context, sessionID string, e broadcast.QAEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO qa_entries (session_id, question, answer, answered_at)
		VALUES (?, ?, ?, ?)
	`, sessionID, e.Question, e.Answer, e.AnsweredAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting qa entry: %w", err)
	}
	s.logger.Debug("saved qa entry", "session_id", sessionID)
	return nil
}

// List returns the ids of sessions with at least one entry, sorted.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT session_id FROM qa_entries ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes every entry of a session.
func (s *SQLiteStore) Delete(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM qa_entries WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite qa store")
	return s.db.Close()
}
