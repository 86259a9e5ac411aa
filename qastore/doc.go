// Package qastore provides HistoryStore implementations for persisting the
// human operator's answers across restarts of a coordination session.
//
// Available stores:
//   - [MemoryStore] keeps answers in memory (useful for testing).
//   - [FileStore] persists each session as a JSON file on disk.
//   - [SQLiteStore] keeps every session in one SQLite database.
//
// All implement [Store], which extends [broadcast.HistoryStore] with List
// and Delete.
package qastore
