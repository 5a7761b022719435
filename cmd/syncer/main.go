package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goran-ethernal/ChainSyncer/internal/checkpoint"
	"github.com/goran-ethernal/ChainSyncer/internal/common"
	"github.com/goran-ethernal/ChainSyncer/internal/config"
	"github.com/goran-ethernal/ChainSyncer/internal/db"
	"github.com/goran-ethernal/ChainSyncer/internal/logger"
	"github.com/goran-ethernal/ChainSyncer/internal/metrics"
	"github.com/goran-ethernal/ChainSyncer/internal/oracle"
	"github.com/goran-ethernal/ChainSyncer/internal/rpc"
	"github.com/goran-ethernal/ChainSyncer/internal/scheduler"
	"github.com/goran-ethernal/ChainSyncer/internal/sink"
	"github.com/goran-ethernal/ChainSyncer/internal/syncer"
	pkgconfig "github.com/goran-ethernal/ChainSyncer/pkg/config"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

var (
	configPath string

	initHeight       uint64
	initSleepSecs    uint64
	initSubRangeSize uint64
	initForce        bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "syncer",
	Short: "ChainSyncer - Incremental on-chain event log synchronizer",
	Long: `ChainSyncer incrementally synchronizes event logs from configured smart
contracts into a persistent store, resuming from a durable checkpoint after
restarts or failures. It is designed to run under an external process
supervisor: fatal conditions exit non-zero and recovery is restart-and-replay
from the last persisted checkpoint.`,
	Version: version,
	RunE:    runSyncer,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the persisted checkpoint",
	RunE:  runStatus,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Seed the checkpoint store with an initial checkpoint",
	Long: `Seed the checkpoint store. The syncer refuses to guess a starting height,
so a checkpoint must exist before the first run.`,
	RunE: runInit,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema := jsonschema.Reflect(&pkgconfig.Config{})
		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to configuration file")

	initCmd.Flags().Uint64Var(&initHeight, "height", 0, "starting synced block height")
	initCmd.Flags().Uint64Var(&initSleepSecs, "sleep-interval", 60, "idle-wait between cycles, in seconds")
	initCmd.Flags().Uint64Var(&initSubRangeSize, "sub-range-size", 5000, "blocks per log query")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing checkpoint")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(schemaCmd)
}

func runSyncer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully...")
		cancel()
	}()

	log := logger.NewComponentLogger(common.ComponentScheduler, cfg.Logging)

	log.Infof("connecting to node: %s", cfg.Node.RPCURL)
	client, err := rpc.NewClient(ctx, cfg.Node.RPCURL, cfg.Node.Retry,
		logger.NewComponentLogger(common.ComponentRPC, cfg.Logging))
	if err != nil {
		return fmt.Errorf("failed to create RPC client: %w", err)
	}
	defer client.Close()

	store, closeStore, err := openCheckpointStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	defer closeStore()

	sinkLog := logger.NewComponentLogger(common.ComponentSink, cfg.Logging)
	sinkDB, err := db.NewSQLiteDBFromConfig(cfg.Sink.DB)
	if err != nil {
		return fmt.Errorf("failed to open sink database: %w", err)
	}
	defer sinkDB.Close()

	if err := sink.RunMigrations(sinkLog, sinkDB); err != nil {
		return fmt.Errorf("failed to run sink migrations: %w", err)
	}

	logSink := sink.NewSQLiteSink(sinkDB, sinkLog)

	targets := make([]syncer.ContractTarget, 0, len(cfg.Contracts))
	for _, c := range cfg.Contracts {
		target := syncer.NewContractTarget(c)
		log.Infof("monitoring contract %s at %s (%d event filters)",
			target.Name, target.Address.Hex(), len(target.Topics))
		targets = append(targets, target)
	}

	engine, err := syncer.NewEngine(client, logSink, store, targets, cfg.Node.FetchPause.Duration,
		logger.NewComponentLogger(common.ComponentSyncEngine, cfg.Logging))
	if err != nil {
		return fmt.Errorf("failed to create sync engine: %w", err)
	}

	heightOracle := oracle.New(client, logger.NewComponentLogger(common.ComponentOracle, cfg.Logging))

	sched, err := scheduler.New(heightOracle, client, engine, store, log)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics, log)
		g.Go(func() error {
			return metricsServer.Start(gctx)
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return metricsServer.Stop(shutdownCtx)
		})
	}

	g.Go(func() error {
		return sched.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("syncer failed: %w", err)
	}

	log.Info("syncer stopped")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, closeStore, err := openCheckpointStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	defer closeStore()

	cp, err := store.Load(cmd.Context())
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(data))
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, closeStore, err := openCheckpointStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	defer closeStore()

	if _, err := store.Load(cmd.Context()); err == nil && !initForce {
		return fmt.Errorf("checkpoint already exists, use --force to overwrite")
	}

	cp := &checkpoint.Checkpoint{
		SyncedBlockHeight: initHeight,
		SleepInterval:     initSleepSecs,
		Offset:            initSubRangeSize,
	}

	if err := store.Save(cmd.Context(), cp); err != nil {
		return fmt.Errorf("failed to seed checkpoint: %w", err)
	}

	fmt.Printf("checkpoint seeded: height=%d, sleep_interval=%ds, sub_range_size=%d\n",
		cp.SyncedBlockHeight, cp.SleepInterval, cp.Offset)
	return nil
}

// openCheckpointStore builds the configured checkpoint store and returns a
// cleanup function for any resources it holds.
func openCheckpointStore(cfg *pkgconfig.Config) (checkpoint.Store, func(), error) {
	log := logger.NewComponentLogger(common.ComponentCheckpoint, cfg.Logging)

	switch cfg.Checkpoint.Backend {
	case pkgconfig.CheckpointBackendFile:
		return checkpoint.NewFileStore(cfg.Checkpoint.Path, log), func() {}, nil

	case pkgconfig.CheckpointBackendSQLite:
		dbCfg := pkgconfig.DatabaseConfig{}
		if cfg.Checkpoint.DB != nil {
			dbCfg = *cfg.Checkpoint.DB
		}
		dbCfg.ApplyDefaults()
		dbCfg.Path = cfg.Checkpoint.Path

		database, err := db.NewSQLiteDBFromConfig(dbCfg)
		if err != nil {
			return nil, nil, err
		}

		if err := checkpoint.RunMigrations(log, database); err != nil {
			database.Close()
			return nil, nil, err
		}

		return checkpoint.NewSQLiteStore(database, log), func() { database.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown checkpoint backend: %s", cfg.Checkpoint.Backend)
	}
}
