package syncer

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/goran-ethernal/ChainSyncer/pkg/config"
)

// BlockRange is a bounded span of block heights queried in one log call.
type BlockRange struct {
	From uint64
	To   uint64
}

// SubRanges covers [from, to] with contiguous, non-overlapping sub-ranges of
// at most size blocks. Adjacent sub-ranges share their boundary block, so
// (100, 250, 100) yields (100,200), (200,250). Returns nil when already
// caught up (from >= to).
func SubRanges(from, to, size uint64) []BlockRange {
	if size == 0 || from >= to {
		return nil
	}

	ranges := make([]BlockRange, 0, (to-from+size-1)/size)
	for cur := from; cur < to; {
		end := min(cur+size, to)
		ranges = append(ranges, BlockRange{From: cur, To: end})
		cur = end
	}

	return ranges
}

// ContractTarget is one monitored contract: its identity, the event topics
// to filter on, and the per-contract metadata handed to the persistence
// collaborator. The target list is fixed at startup and processed in
// declared order.
type ContractTarget struct {
	Name     string
	Address  ethcommon.Address
	Topics   []ethcommon.Hash
	Duration time.Duration
}

// NewContractTarget builds a target from configuration, hashing the
// configured event signatures into topic0 filters. An empty event list
// matches every event the contract emits.
func NewContractTarget(cfg config.ContractConfig) ContractTarget {
	topics := make([]ethcommon.Hash, 0, len(cfg.Events))
	for _, sig := range cfg.Events {
		normalized := strings.ReplaceAll(sig, " ", "")
		topics = append(topics, crypto.Keccak256Hash([]byte(normalized)))
	}

	return ContractTarget{
		Name:     cfg.Name,
		Address:  ethcommon.HexToAddress(cfg.Address),
		Topics:   topics,
		Duration: cfg.Duration.Duration,
	}
}

// FilterQuery builds the log filter for this target over the given sub-range.
func (t ContractTarget) FilterQuery(r BlockRange) ethereum.FilterQuery {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(r.From),
		ToBlock:   new(big.Int).SetUint64(r.To),
		Addresses: []ethcommon.Address{t.Address},
	}

	if len(t.Topics) > 0 {
		query.Topics = [][]ethcommon.Hash{t.Topics}
	}

	return query
}

// LogClient is the chain-client operation the engine needs.
type LogClient interface {
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
}

// LogSink is the external persistence collaborator. It is invoked once per
// non-empty batch per contract per sub-range, and must tolerate duplicate
// delivery of an already-persisted sub-range's events.
type LogSink interface {
	LogSync(ctx context.Context, contract string, logs []types.Log, duration time.Duration) error
}
