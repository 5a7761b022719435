package oracle

import (
	"context"
	"fmt"

	"github.com/goran-ethernal/ChainSyncer/internal/logger"
	"github.com/goran-ethernal/ChainSyncer/internal/metrics"
)

// HeightClient is the single chain-client operation the oracle needs.
type HeightClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// HeightOracle reports the chain's current head height. A failed query is
// returned as an error; the scheduler interprets it as a transient outage,
// never as a fatal condition.
type HeightOracle struct {
	client HeightClient
	log    *logger.Logger
}

// New creates a HeightOracle on top of the given client.
func New(client HeightClient, log *logger.Logger) *HeightOracle {
	return &HeightOracle{
		client: client,
		log:    log.WithComponent("height-oracle"),
	}
}

// CurrentHeight queries the node for the current chain head height.
func (o *HeightOracle) CurrentHeight(ctx context.Context) (uint64, error) {
	height, err := o.client.BlockNumber(ctx)
	if err != nil {
		metrics.OracleFailureInc()
		return 0, fmt.Errorf("failed to query chain head: %w", err)
	}

	metrics.ChainHeadBlock.Set(float64(height))
	o.log.Debugf("chain head at %d", height)

	return height, nil
}
