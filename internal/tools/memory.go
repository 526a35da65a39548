// ABOUTME: Session-scoped key-value memory backed by SQLite
// ABOUTME: Rows are isolated per session and deleted when the session ends
package tools

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const memorySchema = `
CREATE TABLE IF NOT EXISTS session_memory (
	session_id TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (session_id, key)
);
`

// MemoryStore persists per-session key-value pairs. One store is shared by
// every session; isolation happens on session_id.
type MemoryStore struct {
	db *sql.DB
}

// OpenMemoryStore opens (creating if needed) the SQLite database at path.
func OpenMemoryStore(path string) (*MemoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create memory directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open memory database: %w", err)
	}
	if _, err := db.Exec(memorySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize memory schema: %w", err)
	}
	return &MemoryStore{db: db}, nil
}

func (s *MemoryStore) Set(ctx context.Context, sessionID, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_memory (session_id, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (session_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		sessionID, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("store memory %q: %w", key, err)
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_memory WHERE session_id = ? AND key = ?`,
		sessionID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("recall memory %q: %w", key, err)
	}
	return value, true, nil
}

func (s *MemoryStore) Keys(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM session_memory WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan memory key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear removes every row belonging to the session.
func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM session_memory WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("clear session memory: %w", err)
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return s.db.Close()
}

// MemoryTool exposes remember/recall/list over the store, bound to one
// session. Nothing written here outlives the session.
type MemoryTool struct {
	lifecycle
	store     *MemoryStore
	sessionID string
}

// NewMemoryTool binds the shared store to a session.
func NewMemoryTool(store *MemoryStore, sessionID string) *MemoryTool {
	return &MemoryTool{store: store, sessionID: sessionID}
}

func (t *MemoryTool) Name() string { return "session_memory" }

func (t *MemoryTool) Scope() Scope { return ScopeSession }

func (t *MemoryTool) Description() string {
	return "Remember and recall facts the user shares during this conversation, like their name or preferences. Memory is private to this conversation and erased when it ends."
}

func (t *MemoryTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type":        "string",
				"enum":        []string{"remember", "recall", "list"},
				"description": "remember stores a value under a key, recall fetches one, list shows stored keys",
			},
			"key": map[string]any{
				"type":        "string",
				"description": "Memory key, required for remember and recall",
			},
			"value": map[string]any{
				"type":        "string",
				"description": "Value to store, required for remember",
			},
		},
		"required": []string{"action"},
	}
}

// Connect clears any rows left under this session ID. The store is an
// on-disk file, so a predecessor that died without Close would otherwise
// leak its memory into a new session reusing the same ID.
func (t *MemoryTool) Connect(ctx context.Context) error {
	if err := t.begin(); err != nil {
		return err
	}
	err := t.store.Clear(ctx, t.sessionID)
	t.finish(err)
	if err != nil {
		return fmt.Errorf("connect memory tool: %w", err)
	}
	return nil
}

func (t *MemoryTool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	if err := t.requireReady(t.Name()); err != nil {
		return "", err
	}

	action, err := stringArg(args, "action")
	if err != nil {
		return "", err
	}

	switch action {
	case "remember":
		key, err := stringArg(args, "key")
		if err != nil {
			return "", err
		}
		value, err := stringArg(args, "value")
		if err != nil {
			return "", err
		}
		if err := t.store.Set(ctx, t.sessionID, key, value); err != nil {
			return "", err
		}
		return fmt.Sprintf("Remembered %q.", key), nil

	case "recall":
		key, err := stringArg(args, "key")
		if err != nil {
			return "", err
		}
		value, found, err := t.store.Get(ctx, t.sessionID, key)
		if err != nil {
			return "", err
		}
		if !found {
			return fmt.Sprintf("Nothing remembered under %q.", key), nil
		}
		return value, nil

	case "list":
		keys, err := t.store.Keys(ctx, t.sessionID)
		if err != nil {
			return "", err
		}
		if len(keys) == 0 {
			return "No memories stored in this conversation.", nil
		}
		return "Stored keys: " + strings.Join(keys, ", "), nil

	default:
		return "", fmt.Errorf("unknown action %q", action)
	}
}

// Close clears the session's rows before marking the tool closed, so memory
// never leaks across sessions.
func (t *MemoryTool) Close() error {
	defer t.lifecycle.close()
	return t.store.Clear(context.Background(), t.sessionID)
}

func (t *MemoryTool) State() State { return t.current() }
