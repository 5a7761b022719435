package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goran-ethernal/ChainSyncer/internal/logger"
	"github.com/russross/meddler"
)

// checkpointRow is the single-row database representation of the checkpoint.
type checkpointRow struct {
	ID                int64  `meddler:"id,pk"`
	SyncedBlockHeight uint64 `meddler:"synced_block_height"`
	SleepInterval     uint64 `meddler:"sleep_interval"`
	Offset            uint64 `meddler:"sub_range_size"`
}

// SQLiteStore persists the checkpoint as a single row in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	log *logger.Logger
}

// NewSQLiteStore creates a SQLite-backed checkpoint store.
func NewSQLiteStore(db *sql.DB, log *logger.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:  db,
		log: log.WithComponent("checkpoint-store"),
	}
}

// Load reads and validates the checkpoint row.
func (s *SQLiteStore) Load(ctx context.Context) (*Checkpoint, error) {
	var row checkpointRow
	err := meddler.QueryRow(s.db, &row, `SELECT * FROM checkpoint WHERE id = 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: no checkpoint row, seed one with 'syncer init'", ErrCheckpointUnavailable)
		}
		return nil, fmt.Errorf("%w: %v", ErrCheckpointUnavailable, err)
	}

	cp := &Checkpoint{
		SyncedBlockHeight: row.SyncedBlockHeight,
		SleepInterval:     row.SleepInterval,
		Offset:            row.Offset,
	}

	if err := cp.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckpointUnavailable, err)
	}

	s.log.Debugf("loaded checkpoint: height=%d, sleep_interval=%ds, offset=%d",
		cp.SyncedBlockHeight,
		cp.SleepInterval,
		cp.Offset,
	)

	return cp, nil
}

// Save overwrites the checkpoint row, creating it when absent.
func (s *SQLiteStore) Save(ctx context.Context, cp *Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid checkpoint: %w", err)
	}

	const upsert = `
		INSERT INTO checkpoint (id, synced_block_height, sleep_interval, sub_range_size)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			synced_block_height = excluded.synced_block_height,
			sleep_interval = excluded.sleep_interval,
			sub_range_size = excluded.sub_range_size
	`

	if _, err := s.db.ExecContext(ctx, upsert, cp.SyncedBlockHeight, cp.SleepInterval, cp.Offset); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	s.log.Debugf("saved checkpoint: height=%d", cp.SyncedBlockHeight)

	return nil
}
