package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
)

var errCorrupt = errors.New("corrupt ledger")

// FileStore keeps each project's ledger as a JSON array of ids in
// <dir>/votes-<projectId>.json. Writes go through a temp file and a rename.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(projectID string) string {
	return filepath.Join(f.dir, Name(projectID)+".json")
}

func (f *FileStore) Load(projectID string) (Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read(projectID)
}

func (f *FileStore) Save(projectID string, ids Set) (Set, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	merged, err := f.read(projectID)
	if errors.Is(err, errCorrupt) {
		// keep the unreadable file for inspection and start over from ids
		aside := f.path(projectID) + ".corrupt"
		if rerr := os.Rename(f.path(projectID), aside); rerr != nil {
			return nil, fmt.Errorf("move corrupt ledger aside: %w", rerr)
		}
		log.Printf("[Ledger] %v, moved to %s", err, filepath.Base(aside))
		merged, err = NewSet(), nil
	}
	if err != nil {
		return nil, err
	}
	for id := range ids {
		merged[id] = struct{}{}
	}

	data, err := json.Marshal(merged.Sorted())
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(f.dir, Name(projectID)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("write ledger: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(projectID)); err != nil {
		return nil, fmt.Errorf("write ledger: %w", err)
	}
	return merged, nil
}

func (f *FileStore) read(projectID string) (Set, error) {
	data, err := os.ReadFile(f.path(projectID))
	if errors.Is(err, fs.ErrNotExist) {
		return NewSet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("%w %s: %v", errCorrupt, Name(projectID), err)
	}
	return NewSet(ids...), nil
}
