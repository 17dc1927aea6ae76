// Package artifacts provides the artifact store consulted for staleness
// and used to create output folders. Backends: file, memory.
package artifacts

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"traylib/internal/errors"
)

// Backend is a storage backend type
type Backend string

const (
	BackendFile   Backend = "file"
	BackendMemory Backend = "memory"
)

// Store is the artifact store interface
type Store interface {
	// Exists reports whether a regular file is present at path
	Exists(path string) bool

	// EnsureFolder creates path and its parents. Idempotent.
	EnsureFolder(path string) error
}

// FileStore is backed by the local filesystem
type FileStore struct{}

// NewFileStore creates a file store
func NewFileStore() *FileStore {
	return &FileStore{}
}

func (s *FileStore) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (s *FileStore) EnsureFolder(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return errors.Wrap(errors.TypeInternal, "failed to create output folder", err).
			WithContext("path", path)
	}
	return nil
}

// MemoryStore is an in-memory backend (for testing and dry runs)
type MemoryStore struct {
	mu      sync.RWMutex
	files   map[string]bool
	folders map[string]bool
}

// NewMemoryStore creates a memory store seeded with existing files
func NewMemoryStore(files ...string) *MemoryStore {
	s := &MemoryStore{
		files:   make(map[string]bool),
		folders: make(map[string]bool),
	}
	for _, f := range files {
		s.files[filepath.Clean(f)] = true
	}
	return s
}

func (s *MemoryStore) Exists(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.files[filepath.Clean(path)]
}

func (s *MemoryStore) EnsureFolder(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders[filepath.Clean(path)] = true
	return nil
}

// Put marks a file as present.
func (s *MemoryStore) Put(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[filepath.Clean(path)] = true
}

// Folders returns every folder created so far, sorted.
func (s *MemoryStore) Folders() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.folders))
	for f := range s.folders {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Files returns every present file, sorted.
func (s *MemoryStore) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.files))
	for f := range s.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// NewStore creates a store for the given backend
func NewStore(backend Backend) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, errors.Configf("unsupported artifact backend: %s", backend)
	}
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
