package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ExportStatus is the persisted run status
type ExportStatus string

const (
	StatusIncomplete ExportStatus = "INCOMPLETE"
	StatusCompleted  ExportStatus = "COMPLETED"
	StatusCancelled  ExportStatus = "CANCELLED"
	StatusError      ExportStatus = "ERROR"
)

// Terminal reports whether the status is a terminal value
func (s ExportStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusError
}

// Record is the durable snapshot kept in meta.json
type Record struct {
	Status           ExportStatus `json:"status"`
	TotalObjects     int          `json:"totalObjects"`
	ProcessedObjects int          `json:"processedObjects"`
}

// Store persists the run record, rewriting meta.json on every mutation.
// Once a terminal status is written, later status changes are ignored.
type Store struct {
	path string
	mu   sync.Mutex
	rec  Record
}

// NewStore creates a store in the given run directory and persists the
// initial INCOMPLETE record
func NewStore(dir string) (*Store, error) {
	s := &Store{
		path: filepath.Join(dir, "meta.json"),
		rec:  Record{Status: StatusIncomplete},
	}
	if err := s.flushLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetStatus persists a new status. Transitions out of a terminal status
// are silently dropped.
func (s *Store) SetStatus(status ExportStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rec.Status.Terminal() {
		return nil
	}
	s.rec.Status = status
	return s.flushLocked()
}

// SetTotal persists the total object count
func (s *Store) SetTotal(total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rec.TotalObjects = total
	return s.flushLocked()
}

// SetProcessed persists the processed object count
func (s *Store) SetProcessed(processed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rec.ProcessedObjects = processed
	return s.flushLocked()
}

// Snapshot returns a copy of the current record
func (s *Store) Snapshot() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}

// Path returns the location of meta.json
func (s *Store) Path() string {
	return s.path
}

func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(s.rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run metadata: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run metadata: %w", err)
	}
	return nil
}
