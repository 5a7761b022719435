package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCheckpointUnavailable is returned by Load when the backing document is
// missing or malformed. Callers must treat it as fatal: the process must not
// guess a starting height.
var ErrCheckpointUnavailable = errors.New("checkpoint document missing or malformed")

// Checkpoint is the persisted synchronization state: the last block height
// whose events are fully synced, plus the loop tunables.
type Checkpoint struct {
	// SyncedBlockHeight is the last fully processed block height
	SyncedBlockHeight uint64 `json:"syncedBlockHeight" yaml:"syncedBlockHeight"`

	// SleepInterval is the idle-wait between scheduler cycles, in seconds
	SleepInterval uint64 `json:"sleepInterval" yaml:"sleepInterval"`

	// Offset is the sub-range size in blocks per log query
	Offset uint64 `json:"offset" yaml:"offset"`
}

// Validate checks the checkpoint tunables.
func (c *Checkpoint) Validate() error {
	if c.SleepInterval == 0 {
		return fmt.Errorf("sleepInterval must be greater than zero")
	}
	if c.Offset == 0 {
		return fmt.Errorf("offset must be greater than zero")
	}

	return nil
}

// SleepDuration returns the idle-wait interval as a time.Duration.
func (c *Checkpoint) SleepDuration() time.Duration {
	return time.Duration(c.SleepInterval) * time.Second
}

// Store persists and retrieves the checkpoint document. Writes overwrite the
// whole document; there are no partial-field update semantics.
type Store interface {
	// Load reads the checkpoint. It fails with ErrCheckpointUnavailable if
	// the backing document is missing or malformed.
	Load(ctx context.Context) (*Checkpoint, error)

	// Save durably overwrites the checkpoint. A failed save leaves the
	// in-memory checkpoint untrustworthy; callers treat it as fatal.
	Save(ctx context.Context, cp *Checkpoint) error
}
