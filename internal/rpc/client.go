package rpc

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/goran-ethernal/ChainSyncer/internal/logger"
	"github.com/goran-ethernal/ChainSyncer/pkg/config"
)

// Client wraps the Ethereum RPC client with the operations the sync loop
// needs. It owns the underlying connection handles; Reinit replaces them
// atomically so callers never observe a half-initialized client.
type Client struct {
	endpoint string
	retry    *config.RetryConfig
	log      *logger.Logger

	mu  sync.RWMutex
	eth *ethclient.Client
	rpc *rpc.Client
}

// NewClient creates a new RPC client connected to the given endpoint.
func NewClient(ctx context.Context, endpoint string, retry *config.RetryConfig, log *logger.Logger) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	return &Client{
		endpoint: endpoint,
		retry:    retry,
		log:      log.WithComponent("rpc-client"),
		eth:      ethclient.NewClient(rpcClient),
		rpc:      rpcClient,
	}, nil
}

// Reinit re-dials the endpoint and swaps the owned handles. The previous
// connection is closed after the swap. Used by the scheduler after a head
// query failure.
func (c *Client) Reinit(ctx context.Context) error {
	rpcClient, err := rpc.DialContext(ctx, c.endpoint)
	if err != nil {
		return err
	}

	c.mu.Lock()
	old := c.rpc
	c.rpc = rpcClient
	c.eth = ethclient.NewClient(rpcClient)
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}

	c.log.Infow("rpc connection reinitialized", "endpoint", c.endpoint)

	return nil
}

// Close closes the RPC client connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.eth.Close()
}

func (c *Client) handle() *ethclient.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.eth
}

// BlockNumber returns the current chain head height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var height uint64

	err := retryWithBackoff(ctx, c.retry, "eth_blockNumber", func() error {
		var err error
		height, err = c.handle().BlockNumber(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}

	return height, nil
}

// FilterLogs retrieves logs matching the given filter query.
func (c *Client) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log

	err := retryWithBackoff(ctx, c.retry, "eth_getLogs", func() error {
		var err error
		logs, err = c.handle().FilterLogs(ctx, query)
		return err
	})
	if err != nil {
		return nil, err
	}

	return logs, nil
}
