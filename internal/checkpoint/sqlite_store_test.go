package checkpoint

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/goran-ethernal/ChainSyncer/internal/db"
	"github.com/goran-ethernal/ChainSyncer/internal/logger"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "checkpoint.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, RunMigrations(logger.NewNopLogger(), database))
	return database
}

func TestSQLiteStoreNoRow(t *testing.T) {
	store := NewSQLiteStore(newTestDB(t), logger.NewNopLogger())

	_, err := store.Load(context.Background())
	require.ErrorIs(t, err, ErrCheckpointUnavailable)
}

func TestSQLiteStoreRoundtrip(t *testing.T) {
	store := NewSQLiteStore(newTestDB(t), logger.NewNopLogger())

	cp := &Checkpoint{SyncedBlockHeight: 100, SleepInterval: 60, Offset: 5000}
	require.NoError(t, store.Save(context.Background(), cp))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, cp, loaded)
}

func TestSQLiteStoreOverwrite(t *testing.T) {
	database := newTestDB(t)
	store := NewSQLiteStore(database, logger.NewNopLogger())

	require.NoError(t, store.Save(context.Background(), &Checkpoint{SyncedBlockHeight: 100, SleepInterval: 60, Offset: 100}))
	require.NoError(t, store.Save(context.Background(), &Checkpoint{SyncedBlockHeight: 250, SleepInterval: 30, Offset: 200}))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, &Checkpoint{SyncedBlockHeight: 250, SleepInterval: 30, Offset: 200}, loaded)

	// The table holds exactly one row no matter how often we save.
	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM checkpoint`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestSQLiteStoreRejectsInvalid(t *testing.T) {
	store := NewSQLiteStore(newTestDB(t), logger.NewNopLogger())

	err := store.Save(context.Background(), &Checkpoint{SyncedBlockHeight: 1, SleepInterval: 60, Offset: 0})
	require.Error(t, err)

	_, err = store.Load(context.Background())
	require.ErrorIs(t, err, ErrCheckpointUnavailable)
}
