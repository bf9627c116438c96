package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gofrs/flock"

	"closetpicks/internal/dataset"
	"closetpicks/internal/fileutil"
	"closetpicks/internal/services"
)

// CheckpointStore persists enrichment progress. Update is safe for
// concurrent use by goroutines and by other processes sharing the file.
type CheckpointStore struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewCheckpointStore returns a store for the checkpoint file at path.
func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path, lock: flock.New(path + ".lock")}
}

// Checkpoints returns the checkpoint store for the data directory.
func (s *Store) Checkpoints() *CheckpointStore {
	return NewCheckpointStore(filepath.Join(s.dir, CheckpointFile))
}

// Path returns the checkpoint file location.
func (c *CheckpointStore) Path() string { return c.path }

// Load returns the current checkpoint. A missing file is an empty checkpoint.
func (c *CheckpointStore) Load() (dataset.Checkpoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read()
}

// Update records entry under key with a read-modify-write cycle held under
// the in-process mutex and the file lock.
func (c *CheckpointStore) Update(key string, entry dataset.CheckpointEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.lock.Lock(); err != nil {
		return fmt.Errorf("lock checkpoint: %w", err)
	}
	defer func() { _ = c.lock.Unlock() }()

	cp, err := c.read()
	if err != nil {
		return err
	}
	cp[key] = entry
	data, err := Encode(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	return fileutil.WriteFileAtomic(c.path, data, documentMode)
}

// Reset removes the checkpoint file so the next run starts from scratch.
func (c *CheckpointStore) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (c *CheckpointStore) read() (dataset.Checkpoint, error) {
	cp := dataset.Checkpoint{}
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cp, nil
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return cp, nil
	}
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, services.Wrap(services.ErrValidation, "store", "checkpoint", "decode "+filepath.Base(c.path), err)
	}
	return cp, nil
}
