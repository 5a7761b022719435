package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/goran-ethernal/ChainSyncer/internal/checkpoint"
	"github.com/goran-ethernal/ChainSyncer/internal/logger"
	"github.com/goran-ethernal/ChainSyncer/internal/metrics"
)

// Engine covers the gap between the checkpoint and the chain head with
// contiguous bounded sub-ranges, fetching events per contract per sub-range,
// delegating persistence, and advancing the checkpoint only after a
// sub-range is fully processed.
//
// Processing is strictly sequential: contracts in declared order within a
// sub-range, sub-ranges in monotonically increasing height order. Any
// failure aborts the run without advancing the checkpoint for the failed
// sub-range; restart-and-replay from the persisted checkpoint is the
// recovery mechanism.
type Engine struct {
	client  LogClient
	sink    LogSink
	store   checkpoint.Store
	targets []ContractTarget
	pause   time.Duration
	log     *logger.Logger
}

// NewEngine creates a new sync engine.
func NewEngine(
	client LogClient,
	sink LogSink,
	store checkpoint.Store,
	targets []ContractTarget,
	pause time.Duration,
	log *logger.Logger,
) (*Engine, error) {
	if client == nil {
		return nil, errors.New("log client is required")
	}
	if sink == nil {
		return nil, errors.New("log sink is required")
	}
	if store == nil {
		return nil, errors.New("checkpoint store is required")
	}
	if len(targets) == 0 {
		return nil, errors.New("at least one contract target is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	return &Engine{
		client:  client,
		sink:    sink,
		store:   store,
		targets: targets,
		pause:   pause,
		log:     log.WithComponent("sync-engine"),
	}, nil
}

// SyncGap synchronizes [cp.SyncedBlockHeight, latest] and advances cp after
// each fully processed sub-range. cp reflects the last persisted height when
// SyncGap returns, on success and on failure alike.
func (e *Engine) SyncGap(ctx context.Context, cp *checkpoint.Checkpoint, latest uint64) error {
	ranges := SubRanges(cp.SyncedBlockHeight, latest, cp.Offset)

	e.log.Infow("syncing gap",
		"from", cp.SyncedBlockHeight,
		"to", latest,
		"sub_ranges", len(ranges),
		"sub_range_size", cp.Offset,
	)

	for _, r := range ranges {
		if err := e.syncSubRange(ctx, r); err != nil {
			return err
		}

		next := *cp
		next.SyncedBlockHeight = r.To
		if err := e.store.Save(ctx, &next); err != nil {
			return &CheckpointError{Height: r.To, Err: err}
		}
		*cp = next

		metrics.LastSyncedBlock.Set(float64(r.To))
		metrics.SubRangesProcessed.Inc()

		e.log.Infow("checkpoint advanced",
			"from", r.From,
			"to", r.To,
		)
	}

	return nil
}

// syncSubRange fetches and delegates every target's events over one sub-range.
func (e *Engine) syncSubRange(ctx context.Context, r BlockRange) error {
	for i, target := range e.targets {
		if err := ctx.Err(); err != nil {
			return err
		}

		logs, err := e.client.FilterLogs(ctx, target.FilterQuery(r))
		if err != nil {
			metrics.FetchErrorInc(target.Name)
			return &FetchError{Contract: target.Name, Range: r, Err: err}
		}

		e.log.Debugw("fetched events",
			"contract", target.Name,
			"from", r.From,
			"to", r.To,
			"count", len(logs),
		)

		if len(logs) > 0 {
			if err := e.sink.LogSync(ctx, target.Name, logs, target.Duration); err != nil {
				return &SinkError{Contract: target.Name, Range: r, Err: err}
			}

			metrics.LogsDeliveredAdd(target.Name, len(logs))
		}

		// Rate-limiting courtesy to the RPC node between per-contract fetches.
		if i < len(e.targets)-1 && e.pause > 0 {
			select {
			case <-time.After(e.pause):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return nil
}
