package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
)

const CursorVersion = 1

// ErrCursorLocked is returned when another ragctl process holds the cursor.
var ErrCursorLocked = errors.New("cursor is locked by another process")

// Cursor records how far a bulk ingest has progressed through its source file.
type Cursor struct {
	Version       int       `json:"version"`
	Source        string    `json:"source"`
	Line          int       `json:"line"`
	InsertedCount int64     `json:"inserted_count"`
	SkippedCount  int64     `json:"skipped_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsEmpty returns true if the cursor has no position set.
func (c Cursor) IsEmpty() bool {
	return c.Source == "" && c.Line == 0
}

// CursorManager handles cursor persistence with atomic writes and a
// cross-process file lock.
type CursorManager struct {
	filePath string
	lock     *flock.Flock
}

func NewCursorManager(filePath string) *CursorManager {
	return &CursorManager{
		filePath: filePath,
		lock:     flock.New(filePath + ".lock"),
	}
}

// Lock acquires the exclusive lock without blocking.
func (m *CursorManager) Lock() error {
	acquired, err := m.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return ErrCursorLocked
	}
	return nil
}

// Unlock releases the lock. The lock file stays on disk: removing it would
// let a waiter hold a lock on an unlinked inode while a newcomer locks a
// fresh file at the same path.
func (m *CursorManager) Unlock() error {
	if !m.lock.Locked() {
		return nil
	}
	if err := m.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Load reads the cursor from disk. A missing or empty file yields an empty cursor.
func (m *CursorManager) Load() (Cursor, error) {
	data, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return Cursor{Version: CursorVersion}, nil
		}
		return Cursor{}, fmt.Errorf("read cursor file: %w", err)
	}
	if len(data) == 0 {
		return Cursor{Version: CursorVersion}, nil
	}

	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return Cursor{}, fmt.Errorf("parse cursor file: %w", err)
	}
	if cursor.Version == 0 {
		cursor.Version = CursorVersion
	}
	return cursor, nil
}

// Save writes the cursor through a temp file and rename.
func (m *CursorManager) Save(cursor Cursor) error {
	cursor.Version = CursorVersion
	cursor.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(cursor, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cursor: %w", err)
	}

	tmpPath := m.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp cursor file: %w", err)
	}
	if err := os.Rename(tmpPath, m.filePath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename cursor file: %w", err)
	}
	return nil
}

// Reset clears the cursor file.
func (m *CursorManager) Reset() error {
	if err := os.Remove(m.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove cursor file: %w", err)
	}
	return nil
}

func (m *CursorManager) FilePath() string {
	return m.filePath
}
