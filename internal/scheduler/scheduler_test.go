package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goran-ethernal/ChainSyncer/internal/checkpoint"
	"github.com/goran-ethernal/ChainSyncer/internal/logger"
	"github.com/goran-ethernal/ChainSyncer/internal/syncer"
	"github.com/stretchr/testify/require"
)

type stubOracle struct {
	calls int
	fn    func(call int) (uint64, error)
}

func (o *stubOracle) CurrentHeight(ctx context.Context) (uint64, error) {
	o.calls++
	return o.fn(o.calls)
}

type stubReiniter struct {
	calls int
	err   error
}

func (r *stubReiniter) Reinit(ctx context.Context) error {
	r.calls++
	return r.err
}

type engineCall struct {
	from   uint64
	latest uint64
}

// stubEngine records invocations and advances the checkpoint to the head on
// success, like the real engine does.
type stubEngine struct {
	calls []engineCall
	err   error
}

func (e *stubEngine) SyncGap(ctx context.Context, cp *checkpoint.Checkpoint, latest uint64) error {
	e.calls = append(e.calls, engineCall{from: cp.SyncedBlockHeight, latest: latest})
	if e.err != nil {
		return e.err
	}
	cp.SyncedBlockHeight = latest
	return nil
}

type memStore struct {
	cp      *checkpoint.Checkpoint
	saves   []uint64
	loadErr error
	saveErr error
}

func (m *memStore) Load(ctx context.Context) (*checkpoint.Checkpoint, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	cp := *m.cp
	return &cp, nil
}

func (m *memStore) Save(ctx context.Context, cp *checkpoint.Checkpoint) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	saved := *cp
	m.cp = &saved
	m.saves = append(m.saves, cp.SyncedBlockHeight)
	return nil
}

func newTestScheduler(t *testing.T, oracle Oracle, client Reiniter, engine GapSyncer, store checkpoint.Store) *Scheduler {
	t.Helper()

	s, err := New(oracle, client, engine, store, logger.NewNopLogger())
	require.NoError(t, err)
	return s
}

func testCheckpoint(height uint64) *checkpoint.Checkpoint {
	return &checkpoint.Checkpoint{SyncedBlockHeight: height, SleepInterval: 1, Offset: 100}
}

func TestSchedulerRequiresCheckpoint(t *testing.T) {
	store := &memStore{loadErr: checkpoint.ErrCheckpointUnavailable}
	s := newTestScheduler(t, &stubOracle{fn: func(int) (uint64, error) { return 0, nil }},
		&stubReiniter{}, &stubEngine{}, store)

	err := s.Run(context.Background())
	require.ErrorIs(t, err, checkpoint.ErrCheckpointUnavailable)
	require.Equal(t, StateFatal, s.State())
}

func TestSchedulerClampsOnStaleHead(t *testing.T) {
	// Oracle reports a head below the checkpoint: the checkpoint is pulled
	// down to the head and no fetch occurs.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oracle := &stubOracle{fn: func(call int) (uint64, error) {
		if call == 1 {
			return 50, nil
		}
		cancel() // head now equals the clamped checkpoint; stop on idle
		return 50, nil
	}}

	engine := &stubEngine{}
	store := &memStore{cp: testCheckpoint(100)}

	s := newTestScheduler(t, oracle, &stubReiniter{}, engine, store)

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Empty(t, engine.calls)
	require.Equal(t, []uint64{50}, store.saves)
	require.Equal(t, uint64(50), store.cp.SyncedBlockHeight)
}

func TestSchedulerCaughtUpSleeps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oracle := &stubOracle{fn: func(call int) (uint64, error) {
		cancel()
		return 100, nil
	}}

	engine := &stubEngine{}
	store := &memStore{cp: testCheckpoint(100)}

	s := newTestScheduler(t, oracle, &stubReiniter{}, engine, store)

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// Equal heights: no fetch, no save, one idle-wait entered.
	require.Empty(t, engine.calls)
	require.Empty(t, store.saves)
}

func TestSchedulerSyncsGapThenLoopsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := time.Now()

	oracle := &stubOracle{fn: func(call int) (uint64, error) {
		if call == 1 {
			return 250, nil
		}
		cancel()
		return 250, nil
	}}

	engine := &stubEngine{}
	store := &memStore{cp: testCheckpoint(100)}

	s := newTestScheduler(t, oracle, &stubReiniter{}, engine, store)

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, []engineCall{{from: 100, latest: 250}}, engine.calls)

	// After draining the gap the loop re-evaluates immediately, so the
	// second oracle call happens well before a sleep interval elapses.
	require.Less(t, time.Since(start), time.Second)
}

func TestSchedulerOracleOutageIsTransient(t *testing.T) {
	// The head query fails, the connection is reinitialized, and after the
	// idle-wait sync resumes from the unchanged checkpoint.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oracle := &stubOracle{fn: func(call int) (uint64, error) {
		switch call {
		case 1:
			return 0, errors.New("connection refused")
		case 2:
			return 300, nil
		default:
			cancel()
			return 300, nil
		}
	}}

	client := &stubReiniter{}
	engine := &stubEngine{}
	store := &memStore{cp: testCheckpoint(100)}

	s := newTestScheduler(t, oracle, client, engine, store)

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, client.calls)
	require.Equal(t, []engineCall{{from: 100, latest: 300}}, engine.calls)
}

func TestSchedulerReinitFailureStillRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	oracle := &stubOracle{fn: func(call int) (uint64, error) {
		if call == 1 {
			return 0, errors.New("connection refused")
		}
		cancel()
		return 100, nil
	}}

	client := &stubReiniter{err: errors.New("still down")}
	engine := &stubEngine{}
	store := &memStore{cp: testCheckpoint(100)}

	s := newTestScheduler(t, oracle, client, engine, store)

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, client.calls)
	require.Empty(t, engine.calls)
}

func TestSchedulerEngineFailureIsFatal(t *testing.T) {
	oracle := &stubOracle{fn: func(call int) (uint64, error) {
		return 250, nil
	}}

	engineErr := &syncer.FetchError{Contract: "beta", Range: syncer.BlockRange{From: 200, To: 250}, Err: errors.New("boom")}
	engine := &stubEngine{err: engineErr}
	store := &memStore{cp: testCheckpoint(100)}

	s := newTestScheduler(t, oracle, &stubReiniter{}, engine, store)

	err := s.Run(context.Background())
	require.Error(t, err)

	var fetchErr *syncer.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, StateFatal, s.State())
}

func TestSchedulerClampSaveFailureIsFatal(t *testing.T) {
	oracle := &stubOracle{fn: func(call int) (uint64, error) {
		return 50, nil
	}}

	store := &memStore{cp: testCheckpoint(100), saveErr: errors.New("disk full")}

	s := newTestScheduler(t, oracle, &stubReiniter{}, &stubEngine{}, store)

	err := s.Run(context.Background())
	require.Error(t, err)

	var cpErr *syncer.CheckpointError
	require.ErrorAs(t, err, &cpErr)
	require.Equal(t, uint64(50), cpErr.Height)
	require.Equal(t, StateFatal, s.State())
}
