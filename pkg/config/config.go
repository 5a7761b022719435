package config

import (
	"fmt"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainSyncer/internal/common"
	"github.com/goran-ethernal/ChainSyncer/internal/logger"
)

// Checkpoint store backends.
const (
	CheckpointBackendFile   = "file"
	CheckpointBackendSQLite = "sqlite"
)

// Config represents the complete configuration for the ChainSyncer.
type Config struct {
	// Node contains the chain node connection configuration
	Node NodeConfig `yaml:"node" json:"node" toml:"node"`

	// Checkpoint contains the checkpoint store configuration
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint" toml:"checkpoint"`

	// Sink contains the event persistence configuration
	Sink SinkConfig `yaml:"sink" json:"sink" toml:"sink"`

	// Contracts is the static list of contracts to synchronize, in declared order
	Contracts []ContractConfig `yaml:"contracts" json:"contracts" toml:"contracts"`

	// Logging contains logging configuration
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics contains Prometheus metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`
}

// NodeConfig represents the configuration for the chain node connection.
type NodeConfig struct {
	// RPCURL is the Ethereum RPC endpoint URL
	RPCURL string `yaml:"rpc_url" json:"rpc_url" toml:"rpc_url"`

	// FetchPause is the pause between per-contract log fetches within a sub-range.
	// A courtesy to shared RPC nodes, not a correctness requirement.
	FetchPause common.Duration `yaml:"fetch_pause" json:"fetch_pause" toml:"fetch_pause"`

	// Retry contains RPC retry configuration with exponential backoff
	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" toml:"retry,omitempty"`
}

// ApplyDefaults sets default values for optional node configuration fields.
func (n *NodeConfig) ApplyDefaults() {
	if n.FetchPause.Duration == 0 {
		n.FetchPause = common.NewDuration(200 * time.Millisecond) //nolint:mnd
	}

	if n.Retry != nil {
		n.Retry.ApplyDefaults()
	}
}

// RetryConfig represents RPC retry configuration with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial request)
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`

	// InitialBackoff is the initial backoff duration before first retry
	InitialBackoff common.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`

	// MaxBackoff is the maximum backoff duration
	MaxBackoff common.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`

	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

// ApplyDefaults sets default values for retry configuration.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5
	}
	if r.InitialBackoff.Duration == 0 {
		r.InitialBackoff = common.NewDuration(1 * time.Second)
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = common.NewDuration(30 * time.Second) //nolint:mnd
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2.0
	}
}

// CheckpointConfig represents the checkpoint store configuration.
type CheckpointConfig struct {
	// Backend selects the checkpoint store: "file" (JSON document) or "sqlite"
	Backend string `yaml:"backend" json:"backend" toml:"backend"`

	// Path is the checkpoint document path (file backend) or database path (sqlite backend)
	Path string `yaml:"path" json:"path" toml:"path"`

	// DB contains database tuning for the sqlite backend
	DB *DatabaseConfig `yaml:"db,omitempty" json:"db,omitempty" toml:"db,omitempty"`
}

// ApplyDefaults sets default values for optional checkpoint configuration fields.
func (c *CheckpointConfig) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = CheckpointBackendFile
	}

	if c.DB != nil {
		c.DB.ApplyDefaults()
	}
}

// SinkConfig represents the event persistence configuration.
type SinkConfig struct {
	// DB contains database configuration for the SQLite log sink
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`
}

// ApplyDefaults sets default values for optional sink configuration fields.
func (s *SinkConfig) ApplyDefaults() {
	s.DB.ApplyDefaults()
}

// DatabaseConfig represents database configuration.
type DatabaseConfig struct {
	// Path is the file path to the SQLite database
	Path string `yaml:"path" json:"path" toml:"path"`

	// JournalMode sets the SQLite journal mode (e.g., "WAL", "DELETE")
	// WAL mode is recommended for better concurrency
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`

	// Synchronous sets the synchronization level ("FULL", "NORMAL", "OFF")
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is the time in milliseconds to wait when the database is locked
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// CacheSize is the size of the page cache (negative = KB, positive = pages)
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	// MaxOpenConnections is the maximum number of open database connections
	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`

	// MaxIdleConnections is the maximum number of idle connections in the pool
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`

	// EnableForeignKeys enables foreign key constraint enforcement
	EnableForeignKeys bool `yaml:"enable_foreign_keys" json:"enable_foreign_keys" toml:"enable_foreign_keys"`
}

// ApplyDefaults sets default values for optional database configuration fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.CacheSize == 0 {
		d.CacheSize = 10000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 25
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 5
	}
	// EnableForeignKeys defaults to false (zero value)
}

// ContractConfig represents one monitored contract.
type ContractConfig struct {
	// Name is a unique identifier for this contract
	Name string `yaml:"name" json:"name" toml:"name"`

	// Address is the contract address to monitor
	Address string `yaml:"address" json:"address" toml:"address"`

	// Events is the list of event signatures to synchronize
	// Format: "EventName(type1,type2,...)". Empty means all events.
	Events []string `yaml:"events,omitempty" json:"events,omitempty" toml:"events,omitempty"`

	// Duration is the per-contract metadata forwarded to the persistence
	// collaborator for log interpretation
	Duration common.Duration `yaml:"duration,omitempty" json:"duration,omitempty" toml:"duration,omitempty"`
}

// LoggingConfig configures logging behavior with per-component log levels.
type LoggingConfig struct {
	// DefaultLevel is the default log level for all components
	// Options: "debug", "info", "warn", "error"
	DefaultLevel string `yaml:"default_level" json:"default_level" toml:"default_level"`

	// Development enables development mode (stack traces, console encoder)
	Development bool `yaml:"development" json:"development" toml:"development"`

	// ComponentLevels sets log levels for specific components
	// Available components:
	//   - scheduler: Outer synchronization loop
	//   - sync-engine: Sub-range fetching and delegation
	//   - checkpoint-store: Checkpoint persistence
	//   - height-oracle: Chain head queries
	//   - rpc-client: Node RPC access
	//   - log-sink: Event persistence
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional logging configuration fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks if the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	if l.DefaultLevel != "" {
		if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(l.DefaultLevel)]; !valid {
			return fmt.Errorf("logging.default_level: must be one of: debug, info, warn, error")
		}
	}

	for component, level := range l.ComponentLevels {
		if _, validComponent := common.AllComponents[common.ToLowerWithTrim(component)]; !validComponent {
			return fmt.Errorf("logging.component_levels: unknown component '%s'", component)
		}

		if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(level)]; !valid {
			return fmt.Errorf("logging.component_levels[%s]: must be one of: debug, info, warn, error", component)
		}
	}

	return nil
}

// GetComponentLevel returns the log level for a specific component.
// Falls back to DefaultLevel if no component-specific level is set.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if level, ok := l.ComponentLevels[component]; ok {
		return level
	}
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// GetDefaultLevel returns the default log level.
func (l *LoggingConfig) GetDefaultLevel() string {
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// IsDevelopment returns whether development mode is enabled.
func (l *LoggingConfig) IsDevelopment() bool {
	return l.Development
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP endpoint are active
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the metrics HTTP server to
	// Format: "host:port" or ":port"
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// Path is the HTTP path where metrics are exposed
	Path string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets default values for optional metrics configuration fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
	// Enabled defaults to false (zero value)
}

// Validate checks if the metrics configuration is valid.
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.ListenAddress == "" {
			return fmt.Errorf("listen_address is required when metrics are enabled")
		}
		if m.Path == "" {
			return fmt.Errorf("path is required when metrics are enabled")
		}
		if m.Path[0] != '/' {
			return fmt.Errorf("path must start with '/'")
		}
	}
	return nil
}

// ApplyDefaults sets default values for optional configuration fields.
func (c *Config) ApplyDefaults() {
	c.Node.ApplyDefaults()
	c.Checkpoint.ApplyDefaults()
	c.Sink.ApplyDefaults()

	if c.Logging != nil {
		c.Logging.ApplyDefaults()
	}

	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Node.RPCURL == "" {
		return fmt.Errorf("node.rpc_url is required")
	}

	if c.Checkpoint.Backend != CheckpointBackendFile && c.Checkpoint.Backend != CheckpointBackendSQLite {
		return fmt.Errorf("checkpoint.backend must be one of: 'file' or 'sqlite'")
	}

	if c.Checkpoint.Path == "" {
		return fmt.Errorf("checkpoint.path is required")
	}

	if c.Sink.DB.Path == "" {
		return fmt.Errorf("sink.db.path is required")
	}

	if len(c.Contracts) == 0 {
		return fmt.Errorf("at least one contract must be configured")
	}

	contractNames := make(map[string]bool)
	for i, contract := range c.Contracts {
		if contract.Name == "" {
			return fmt.Errorf("contract[%d]: name is required", i)
		}

		if contractNames[contract.Name] {
			return fmt.Errorf("contract[%d]: duplicate contract name '%s'", i, contract.Name)
		}
		contractNames[contract.Name] = true

		if contract.Address == "" {
			return fmt.Errorf("contract[%d] (%s): address is required", i, contract.Name)
		}

		if !ethcommon.IsHexAddress(contract.Address) {
			return fmt.Errorf("contract[%d] (%s): '%s' is not a valid address", i, contract.Name, contract.Address)
		}
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	return nil
}
