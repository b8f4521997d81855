package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"breathplat/internal/logging"
	"breathplat/internal/workflow"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Entry is one file held by the store.
type Entry struct {
	Handle string
	Name   string
	Format Format
	Raw    []byte
	Table  *Table
	Source string // handle this entry was derived from, if any
	digest string
}

// Ref returns the reference that goes into workflow data.
func (e Entry) Ref() workflow.FileRef {
	ref := workflow.FileRef{
		Name:   e.Name,
		Handle: e.Handle,
		Format: string(e.Format),
	}
	if e.Table != nil {
		ref.Columns = append([]string(nil), e.Table.Columns...)
		ref.Rows = e.Table.Len()
	}
	return ref
}

// Store owns file blobs and their parsed tables for the lifetime of a
// session. Workflow data only carries handles; registering the same name and
// content twice returns the existing handle.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]*Entry
	byDigest map[string]string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries:  make(map[string]*Entry),
		byDigest: make(map[string]string),
	}
}

// Register parses raw content named name and stores it.
func (s *Store) Register(name string, raw []byte) (Entry, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return Entry{}, err
	}

	digest := digestOf(name, raw)
	if e, ok := s.lookupDigest(digest); ok {
		return e, nil
	}

	table, err := Parse(format, raw)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", name, err)
	}
	return s.insert(&Entry{Name: name, Format: format, Raw: raw, Table: table, digest: digest}), nil
}

// RegisterTable stores a table produced by a service, derived from the entry
// with handle source. The raw form is the table's JSON encoding.
func (s *Store) RegisterTable(name string, t *Table, source string) (Entry, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	digest := digestOf(name, raw)
	if e, ok := s.lookupDigest(digest); ok {
		return e, nil
	}
	return s.insert(&Entry{Name: name, Format: FormatJSON, Raw: raw, Table: t, Source: source, digest: digest}), nil
}

// Get returns the entry for a handle.
func (s *Store) Get(handle string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[handle]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Resolve returns the entry behind a file reference.
func (s *Store) Resolve(ref workflow.FileRef) (Entry, error) {
	if ref.Handle == "" {
		return Entry{}, fmt.Errorf("file %q has no handle", ref.Name)
	}
	e, ok := s.Get(ref.Handle)
	if !ok {
		return Entry{}, fmt.Errorf("file %q (handle %s) is not in the store", ref.Name, ref.Handle)
	}
	return e, nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) lookupDigest(digest string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if h, ok := s.byDigest[digest]; ok {
		return *s.entries[h], true
	}
	return Entry{}, false
}

func (s *Store) insert(e *Entry) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	// another goroutine may have registered the same content meanwhile
	if h, ok := s.byDigest[e.digest]; ok {
		return *s.entries[h]
	}
	e.Handle = uuid.NewString()
	s.entries[e.Handle] = e
	s.byDigest[e.digest] = e.Handle

	logging.Get(logging.CategoryDataset).Debug("registered file",
		zap.String("name", e.Name),
		zap.String("handle", e.Handle),
		zap.String("format", string(e.Format)),
		zap.Int("rows", e.Table.Len()),
		zap.String("source", e.Source))
	return *e
}

func digestOf(name string, raw []byte) string {
	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write(raw)
	return hex.EncodeToString(h.Sum(nil))
}
