// ABOUTME: Append-only JSONL log of retrieval conflicts for human review
// ABOUTME: One JSON object per line, never read back by the running system
package retrieval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/byoung/ai-me/internal/models"
)

// ConflictLog appends ConflictRecords to a JSONL file.
type ConflictLog struct {
	mu   sync.Mutex
	path string
}

// NewConflictLog creates a log writing to path. The file and its parent
// directory are created on first append.
func NewConflictLog(path string) *ConflictLog {
	return &ConflictLog{path: path}
}

// Append writes one record as a single JSON line.
func (l *ConflictLog) Append(rec models.ConflictRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create conflict log directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open conflict log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal conflict record: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write conflict record: %w", err)
	}
	return nil
}
