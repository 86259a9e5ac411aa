package qastore_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armatrix/agent-broadcast-go/broadcast"
	"github.com/armatrix/agent-broadcast-go/qastore"
)

func entry(q, a string) broadcast.QAEntry {
	return broadcast.QAEntry{Question: q, Answer: a, AnsweredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

// stores returns one instance of every implementation.
func stores(t *testing.T) map[string]qastore.Store {
	t.Helper()
	dir := t.TempDir()

	file, err := qastore.NewFileStore(filepath.Join(dir, "files"))
	require.NoError(t, err)
	sqlite, err := qastore.NewSQLiteStore(filepath.Join(dir, "db", "qa.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]qastore.Store{
		"memory": qastore.NewMemoryStore(),
		"file":   file,
		"sqlite": sqlite,
	}
}

func TestStores_AppendAndLoad(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			empty, err := s.Load(ctx, "sess_1")
			require.NoError(t, err)
			assert.Empty(t, empty)

			require.NoError(t, s.Append(ctx, "sess_1", entry("What theme?", "Dark mode")))
			require.NoError(t, s.Append(ctx, "sess_1", entry("Which font?", "Inter")))
			require.NoError(t, s.Append(ctx, "sess_2", entry("Other?", "Yes")))

			got, err := s.Load(ctx, "sess_1")
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "What theme?", got[0].Question)
			assert.Equal(t, "Dark mode", got[0].Answer)
			assert.Equal(t, "Inter", got[1].Answer)
			assert.True(t, got[0].AnsweredAt.Equal(entry("", "").AnsweredAt))
		})
	}
}

func TestStores_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Append(ctx, "b", entry("q", "a")))
			require.NoError(t, s.Append(ctx, "a", entry("q", "a")))

			ids, err := s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, ids)

			require.NoError(t, s.Delete(ctx, "a"))
			ids, err = s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"b"}, ids)

			assert.ErrorIs(t, s.Delete(ctx, "missing"), qastore.ErrSessionNotFound)
		})
	}
}

func TestStores_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for range 10 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.NoError(t, s.Append(ctx, "sess", entry("q", "a")))
				}()
			}
			wg.Wait()

			got, err := s.Load(ctx, "sess")
			require.NoError(t, err)
			assert.Len(t, got, 10)
		})
	}
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := qastore.NewMemoryStore()
	require.NoError(t, s.Append(ctx, "sess", entry("q", "a")))

	got, err := s.Load(ctx, "sess")
	require.NoError(t, err)
	got[0].Answer = "tampered"

	again, err := s.Load(ctx, "sess")
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].Answer)
}

func TestFileStore_NewCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "qa")
	_, err := qastore.NewFileStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := qastore.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, "sess", entry("q", "a")))

	reopened, err := qastore.NewFileStore(dir)
	require.NoError(t, err)
	got, err := reopened.Load(ctx, "sess")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644))
	s, err := qastore.NewFileStore(dir)
	require.NoError(t, err)

	_, err = s.Load(context.Background(), "bad")
	assert.Error(t, err)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "qa.db")
	s, err := qastore.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, "sess", entry("q", "a")))
	require.NoError(t, s.Close())

	reopened, err := qastore.NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Load(ctx, "sess")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := qastore.Open("")
	require.NoError(t, err)
	assert.IsType(t, &qastore.MemoryStore{}, s)

	s, err = qastore.Open(filepath.Join(dir, "answers.db"))
	require.NoError(t, err)
	assert.IsType(t, &qastore.SQLiteStore{}, s)
	require.NoError(t, s.Close())

	s, err = qastore.Open(filepath.Join(dir, "answers"))
	require.NoError(t, err)
	assert.IsType(t, &qastore.FileStore{}, s)
}

func TestStore_ResumesHumanGate(t *testing.T) {
	ctx := context.Background()
	s := qastore.NewMemoryStore()
	require.NoError(t, s.Append(ctx, "sess", entry("What theme?", "Dark mode")))

	prompted := false
	gate := broadcast.NewHumanGate(broadcast.PrompterFunc(func(context.Context, broadcast.Prompt) (broadcast.HumanReply, error) {
		prompted = true
		return broadcast.HumanReply{Text: "x"}, nil
	}), broadcast.WithHistoryStore(s, "sess"))
	require.NoError(t, gate.Load(ctx))

	out := gate.Respond(ctx, broadcast.Question{Text: "What style?"})
	assert.Equal(t, broadcast.StatusDeferred, out.Status)
	assert.False(t, prompted)
}
