package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goran-ethernal/ChainSyncer/internal/logger"
)

// FileStore persists the checkpoint as a JSON document
// {syncedBlockHeight, sleepInterval, offset} on the local filesystem.
// Saves go through a temp file and rename so a crash mid-write never leaves
// a torn document behind.
type FileStore struct {
	path string
	log  *logger.Logger
}

// NewFileStore creates a file-backed checkpoint store at the given path.
func NewFileStore(path string, log *logger.Logger) *FileStore {
	return &FileStore{
		path: path,
		log:  log.WithComponent("checkpoint-store"),
	}
}

// Load reads and validates the checkpoint document.
func (s *FileStore) Load(ctx context.Context) (*Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrCheckpointUnavailable, s.path, err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrCheckpointUnavailable, s.path, err)
	}

	if err := cp.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckpointUnavailable, err)
	}

	s.log.Debugf("loaded checkpoint: height=%d, sleep_interval=%ds, offset=%d",
		cp.SyncedBlockHeight,
		cp.SleepInterval,
		cp.Offset,
	)

	return &cp, nil
}

// Save overwrites the whole checkpoint document.
func (s *FileStore) Save(ctx context.Context, cp *Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid checkpoint: %w", err)
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:mnd
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace checkpoint document: %w", err)
	}

	s.log.Debugf("saved checkpoint: height=%d", cp.SyncedBlockHeight)

	return nil
}

// Path returns the location of the checkpoint document.
func (s *FileStore) Path() string {
	return filepath.Clean(s.path)
}
