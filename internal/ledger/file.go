package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File is a Memory ledger mirrored to a JSON array of identifiers on disk.
type File struct {
	*Memory
	path string
	wmu  sync.Mutex
}

// OpenFile restores the ledger from path. A missing file starts empty.
func OpenFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ledger: create dir for %s: %w", path, err)
	}
	f := &File{Memory: NewMemory(), path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("ledger: read %s: %w", path, err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("ledger: parse %s: %w", path, err)
	}
	for _, id := range ids {
		f.add(id)
	}
	return f, nil
}

func (f *File) MarkSeen(_ context.Context, id string) error {
	if !f.add(id) {
		return nil
	}
	return f.save()
}

func (f *File) Path() string { return f.path }

// save replaces the file atomically via rename.
func (f *File) save() error {
	f.wmu.Lock()
	defer f.wmu.Unlock()

	data, err := json.MarshalIndent(f.IDs(), "", "  ")
	if err != nil {
		return fmt.Errorf("ledger: marshal: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("ledger: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("ledger: replace %s: %w", f.path, err)
	}
	return nil
}
