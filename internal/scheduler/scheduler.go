package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goran-ethernal/ChainSyncer/internal/checkpoint"
	"github.com/goran-ethernal/ChainSyncer/internal/logger"
	"github.com/goran-ethernal/ChainSyncer/internal/metrics"
	"github.com/goran-ethernal/ChainSyncer/internal/syncer"
)

// State is the scheduler's coarse execution state.
type State int

const (
	StateCatchingUp State = iota
	StateIdleWait
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateCatchingUp:
		return "catching-up"
	case StateIdleWait:
		return "idle-wait"
	case StateFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Oracle reports the chain's current head height.
type Oracle interface {
	CurrentHeight(ctx context.Context) (uint64, error)
}

// Reiniter reinitializes the chain-client connection after an outage.
type Reiniter interface {
	Reinit(ctx context.Context) error
}

// GapSyncer synchronizes the gap between the checkpoint and the given head.
type GapSyncer interface {
	SyncGap(ctx context.Context, cp *checkpoint.Checkpoint, latest uint64) error
}

// Scheduler is the outer forever-loop. Each cycle it reads the chain head,
// clamps the checkpoint down when the head is behind it (reorg or stale
// node), invokes the sync engine when there is a gap, and sleeps when caught
// up. Oracle failures are transient: the connection is reinitialized and the
// cycle retried without bound. Engine and checkpoint failures are fatal;
// recovery is an external supervisor restarting the process, which re-enters
// at checkpoint load.
type Scheduler struct {
	oracle Oracle
	client Reiniter
	engine GapSyncer
	store  checkpoint.Store
	log    *logger.Logger

	state State
}

// New creates a new Scheduler.
func New(
	oracle Oracle,
	client Reiniter,
	engine GapSyncer,
	store checkpoint.Store,
	log *logger.Logger,
) (*Scheduler, error) {
	if oracle == nil {
		return nil, errors.New("height oracle is required")
	}
	if client == nil {
		return nil, errors.New("chain client is required")
	}
	if engine == nil {
		return nil, errors.New("sync engine is required")
	}
	if store == nil {
		return nil, errors.New("checkpoint store is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	return &Scheduler{
		oracle: oracle,
		client: client,
		engine: engine,
		store:  store,
		log:    log.WithComponent("scheduler"),
	}, nil
}

// State returns the scheduler's current state.
func (s *Scheduler) State() State {
	return s.state
}

// Run loads the checkpoint and drives the synchronization loop until the
// context is cancelled or a fatal condition occurs.
func (s *Scheduler) Run(ctx context.Context) error {
	cp, err := s.store.Load(ctx)
	if err != nil {
		s.setState(StateFatal)
		return fmt.Errorf("cannot start without a checkpoint: %w", err)
	}

	s.log.Infow("scheduler started",
		"synced_block_height", cp.SyncedBlockHeight,
		"sleep_interval", cp.SleepDuration(),
		"sub_range_size", cp.Offset,
	)

	s.setState(StateCatchingUp)

	for {
		if err := ctx.Err(); err != nil {
			s.log.Info("scheduler stopped")
			return err
		}

		height, err := s.oracle.CurrentHeight(ctx)
		if err != nil {
			// Transient outage: reconnect and retry after a sleep, without bound.
			s.log.Warnw("chain head unavailable, reinitializing connection", "error", err)
			if rerr := s.client.Reinit(ctx); rerr != nil {
				s.log.Warnw("connection reinit failed, will retry", "error", rerr)
			}
			if err := s.idleWait(ctx, cp.SleepDuration()); err != nil {
				return err
			}
			continue
		}

		switch {
		case height < cp.SyncedBlockHeight:
			// Reorg or stale node: pull the checkpoint down to the observed
			// head and proceed without fetching.
			s.log.Warnw("chain head below checkpoint, clamping",
				"head", height,
				"checkpoint", cp.SyncedBlockHeight,
			)

			cp.SyncedBlockHeight = height
			if err := s.store.Save(ctx, cp); err != nil {
				s.setState(StateFatal)
				return &syncer.CheckpointError{Height: height, Err: err}
			}

			metrics.ClampInc()
			metrics.LastSyncedBlock.Set(float64(height))

		case height > cp.SyncedBlockHeight:
			if err := s.engine.SyncGap(ctx, cp, height); err != nil {
				if ctx.Err() != nil {
					s.log.Info("scheduler stopped")
					return ctx.Err()
				}

				s.setState(StateFatal)
				return fmt.Errorf("sync engine failed: %w", err)
			}
			// Loop again immediately to drain any backlog that accumulated
			// while this gap was being processed.

		default:
			s.log.Infow("synced", "height", height)
			if err := s.idleWait(ctx, cp.SleepDuration()); err != nil {
				return err
			}
		}
	}
}

// idleWait sleeps for the checkpoint's sleep interval, waking early on
// context cancellation.
func (s *Scheduler) idleWait(ctx context.Context, d time.Duration) error {
	s.setState(StateIdleWait)
	defer s.setState(StateCatchingUp)

	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		s.log.Info("scheduler stopped")
		return ctx.Err()
	}
}

func (s *Scheduler) setState(state State) {
	s.state = state
	metrics.SchedulerState.Set(float64(state))
}
