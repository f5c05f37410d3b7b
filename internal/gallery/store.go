// Package gallery persists enrolled face embeddings in a single blob file.
package gallery

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/google/renameio"
	"github.com/kozaktomas/roll-call/internal/facematch"
)

var (
	// ErrDuplicateIdentity is returned when appending a student ID that is already enrolled.
	ErrDuplicateIdentity = errors.New("student is already enrolled")

	// ErrDimensionMismatch is returned when an embedding has the wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrCorrupt is returned when the gallery file cannot be decoded into a consistent gallery.
	ErrCorrupt = errors.New("gallery file is corrupt")
)

// blob is the on-disk layout: two parallel arrays correlated by index.
type blob struct {
	StudentIDs []string
	Encodings  [][]float64
}

// Store is the in-memory gallery backed by a blob file.
// Every mutation is written to disk before it returns.
type Store struct {
	mu      sync.RWMutex
	path    string
	dim     int
	entries facematch.Gallery
}

// NewStore creates an empty store for the given file. A dim of 0 disables the
// embedding length check.
func NewStore(path string, dim int) *Store {
	return &Store{path: path, dim: dim}
}

// Open creates a store and loads the existing gallery file, if any.
func Open(path string, dim int) (*Store, error) {
	s := NewStore(path, dim)
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the gallery file path.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory gallery with the file contents.
// A missing file yields an empty gallery.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.mu.Lock()
		s.entries = nil
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading gallery file: %w", err)
	}

	entries, err := decode(data, s.dim)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}

// Save writes the current gallery to disk.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saveLocked()
}

// saveLocked atomically replaces the gallery file. Callers hold s.mu.
func (s *Store) saveLocked() error {
	data, err := encode(s.entries)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating gallery directory: %w", err)
		}
	}
	if err := renameio.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing gallery file: %w", err)
	}
	return nil
}

// Append enrolls a new embedding and persists the gallery.
// If the file cannot be written the entry is not kept in memory either.
func (s *Store) Append(studentID string, embedding facematch.Embedding) error {
	if s.dim > 0 && len(embedding) != s.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), s.dim)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(studentID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateIdentity, studentID)
	}

	s.entries = append(s.entries, facematch.Entry{
		StudentID: studentID,
		Embedding: slices.Clone(embedding),
	})
	if err := s.saveLocked(); err != nil {
		s.entries = s.entries[:len(s.entries)-1]
		return err
	}
	return nil
}

// Remove deletes the first entry for studentID and persists the gallery.
// Returns false without touching the file if the student is not enrolled.
func (s *Store) Remove(studentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(studentID)
	if idx < 0 {
		return false, nil
	}

	previous := s.entries
	s.entries = slices.Delete(slices.Clone(previous), idx, idx+1)
	if err := s.saveLocked(); err != nil {
		s.entries = previous
		return false, err
	}
	return true, nil
}

// Has reports whether studentID is enrolled.
func (s *Store) Has(studentID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(studentID) >= 0
}

// Len returns the number of enrolled students.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// IDs returns the enrolled student IDs in gallery order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.entries))
	for i, e := range s.entries {
		ids[i] = e.StudentID
	}
	return ids
}

// Snapshot returns a copy of the gallery that is safe to match against
// while enrollments continue.
func (s *Store) Snapshot() facematch.Gallery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Entries are never mutated in place, so a shallow copy is enough.
	return slices.Clone(s.entries)
}

func (s *Store) indexLocked(studentID string) int {
	return slices.IndexFunc(s.entries, func(e facematch.Entry) bool {
		return e.StudentID == studentID
	})
}

func encode(entries facematch.Gallery) ([]byte, error) {
	b := blob{
		StudentIDs: make([]string, len(entries)),
		Encodings:  make([][]float64, len(entries)),
	}
	for i, e := range entries {
		b.StudentIDs[i] = e.StudentID
		b.Encodings[i] = e.Embedding
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return nil, fmt.Errorf("encoding gallery: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte, dim int) (facematch.Gallery, error) {
	var b blob
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(b.StudentIDs) != len(b.Encodings) {
		return nil, fmt.Errorf("%w: %d student ids but %d encodings", ErrCorrupt, len(b.StudentIDs), len(b.Encodings))
	}

	entries := make(facematch.Gallery, len(b.StudentIDs))
	for i, id := range b.StudentIDs {
		if dim > 0 && len(b.Encodings[i]) != dim {
			return nil, fmt.Errorf("%w: encoding %d has %d components, want %d", ErrCorrupt, i, len(b.Encodings[i]), dim)
		}
		entries[i] = facematch.Entry{StudentID: id, Embedding: b.Encodings[i]}
	}
	return entries, nil
}
