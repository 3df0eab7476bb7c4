package selection

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// fileStore keeps one JSON file per kind:
//
//	<dir>/
//	  athletes.json
//	  orders.json
type fileStore struct {
	dir string
}

type selectionFile struct {
	Kind      string    `json:"kind"`
	IDs       []string  `json:"ids"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFileSystemArea creates a selection area persisted under dir.
func NewFileSystemArea(dir string, maxSize int) (*Area, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating selection directory: %w", err)
	}
	return newArea(&fileStore{dir: dir}, maxSize), nil
}

func (s *fileStore) path(kind string) string {
	return filepath.Join(s.dir, kind+".json")
}

func (s *fileStore) Load(kind string) ([]string, error) {
	data, err := os.ReadFile(s.path(kind))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var f selectionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.path(kind), err)
	}
	return f.IDs, nil
}

func (s *fileStore) Save(kind string, ids []string) error {
	p := s.path(kind)
	if len(ids) == 0 {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}

	data, err := json.MarshalIndent(selectionFile{Kind: kind, IDs: ids, UpdatedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing selection: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	return os.Rename(tmp.Name(), p)
}
