// Package history records every import attempt.
//
// Two stores implement Store: MemoryStore, a bounded ring used when no
// database is configured, and PostgresStore, used when DATABASE_URL is set.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of an import.
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// DefaultLimit is used when List is called with a non-positive limit.
const DefaultLimit = 50

// Record describes one import attempt.
type Record struct {
	ID         uuid.UUID `json:"import_id"`
	Filename   string    `json:"filename"`
	StoredPath string    `json:"stored_path"`
	FileHash   string    `json:"file_hash"`
	Rows       int       `json:"rows"`
	Status     Status    `json:"status"`
	Violations []string  `json:"violations"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewRecord returns a record with a fresh ID.
func NewRecord(filename string, status Status, createdAt time.Time) Record {
	return Record{
		ID:         uuid.New(),
		Filename:   filename,
		Status:     status,
		Violations: []string{},
		CreatedAt:  createdAt.UTC(),
	}
}

// Store persists import records.
type Store interface {
	Add(ctx context.Context, r Record) error
	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]Record, error)
}

// MemoryStore keeps the most recent records in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	next    int
	full    bool
}

// NewMemoryStore returns a store holding at most capacity records.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultLimit
	}
	return &MemoryStore{records: make([]Record, capacity)}
}

// Add stores r, evicting the oldest record when full.
func (m *MemoryStore) Add(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[m.next] = r
	m.next = (m.next + 1) % len(m.records)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// List returns up to limit records, newest first.
func (m *MemoryStore) List(_ context.Context, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.next
	if m.full {
		n = len(m.records)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit < n {
		n = limit
	}

	out := make([]Record, 0, n)
	for i := 1; i <= n; i++ {
		idx := (m.next - i + len(m.records)) % len(m.records)
		out = append(out, m.records[idx])
	}
	return out, nil
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.full {
		return len(m.records)
	}
	return m.next
}
