package sink

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/ChainSyncer/internal/logger"
	"github.com/russross/meddler"
)

// eventLogRow is the database representation of one event log.
type eventLogRow struct {
	Contract     string         `meddler:"contract"`
	BlockNumber  uint64         `meddler:"block_number"`
	TxHash       common.Hash    `meddler:"tx_hash,hash"`
	LogIndex     uint           `meddler:"log_index"`
	Address      common.Address `meddler:"address,address"`
	Topics       string         `meddler:"topics"`
	Data         string         `meddler:"data"`
	DurationSecs uint64         `meddler:"duration_secs"`
}

// SQLiteSink persists event batches into a SQLite database. Writes are
// idempotent: a row is keyed by (tx_hash, log_index), so replaying a
// sub-range after a crash-and-restart inserts nothing new.
type SQLiteSink struct {
	db  *sql.DB
	log *logger.Logger
}

// NewSQLiteSink creates a SQLite-backed log sink.
func NewSQLiteSink(db *sql.DB, log *logger.Logger) *SQLiteSink {
	return &SQLiteSink{
		db:  db,
		log: log.WithComponent("log-sink"),
	}
}

// LogSync persists one contract's event batch. The whole batch is written in
// a single transaction so a crash never leaves a partially visible batch.
func (s *SQLiteSink) LogSync(ctx context.Context, contract string, logs []types.Log, duration time.Duration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `
		INSERT OR IGNORE INTO event_logs
			(contract, block_number, tx_hash, log_index, address, topics, data, duration_secs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, l := range logs {
		topics := make([]string, len(l.Topics))
		for i, t := range l.Topics {
			topics[i] = t.Hex()
		}

		_, err := tx.ExecContext(ctx, insert,
			contract,
			l.BlockNumber,
			l.TxHash.Hex(),
			l.Index,
			l.Address.Hex(),
			strings.Join(topics, ","),
			"0x"+hex.EncodeToString(l.Data),
			uint64(duration.Seconds()),
		)
		if err != nil {
			return fmt.Errorf("failed to insert event log: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event batch: %w", err)
	}

	s.log.Debugf("persisted batch: contract=%s, logs=%d", contract, len(logs))

	return nil
}

// GetLogs retrieves persisted logs for a contract over a block range,
// ordered by block number and log index.
func (s *SQLiteSink) GetLogs(ctx context.Context, contract string, fromBlock, toBlock uint64) ([]types.Log, error) {
	const query = `
		SELECT * FROM event_logs
		WHERE contract = ? AND block_number >= ? AND block_number <= ?
		ORDER BY block_number ASC, log_index ASC
	`

	var rows []*eventLogRow
	if err := meddler.QueryAll(s.db, &rows, query, contract, fromBlock, toBlock); err != nil {
		return nil, fmt.Errorf("failed to query event logs: %w", err)
	}

	logs := make([]types.Log, len(rows))
	for i, row := range rows {
		l, err := rowToEthLog(row)
		if err != nil {
			return nil, err
		}
		logs[i] = l
	}

	return logs, nil
}

func rowToEthLog(row *eventLogRow) (types.Log, error) {
	l := types.Log{
		Address:     row.Address,
		BlockNumber: row.BlockNumber,
		TxHash:      row.TxHash,
		Index:       row.LogIndex,
	}

	if row.Topics != "" {
		for _, t := range strings.Split(row.Topics, ",") {
			l.Topics = append(l.Topics, common.HexToHash(t))
		}
	}

	data, err := hex.DecodeString(strings.TrimPrefix(row.Data, "0x"))
	if err != nil {
		return types.Log{}, fmt.Errorf("failed to decode log data: %w", err)
	}
	l.Data = data

	return l, nil
}
