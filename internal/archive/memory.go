package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryArchive keeps entries in memory. Safe for concurrent use.
type MemoryArchive struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	data    []byte
	modTime time.Time
}

// NewMemoryArchive creates an empty in-memory archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryArchive) Put(_ context.Context, key string, r io.Reader, size int64) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	if int64(len(data)) != size {
		return sizeMismatch(size, int64(len(data)))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{data: data, modTime: m.now()}
	return nil
}

func (m *MemoryArchive) Get(_ context.Context, key string, w io.Writer) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if _, err := io.Copy(w, bytes.NewReader(e.data)); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (m *MemoryArchive) List(_ context.Context, prefix string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	for k, e := range m.entries {
		if strings.HasPrefix(k, prefix) {
			out = append(out, Entry{Key: k, Size: int64(len(e.data)), ModTime: e.modTime})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// ValidateSetup always succeeds for an in-memory archive.
func (m *MemoryArchive) ValidateSetup(context.Context) error {
	return nil
}

var _ Archive = (*MemoryArchive)(nil)
