package common

const (
	ComponentScheduler  = "scheduler"
	ComponentSyncEngine = "sync-engine"
	ComponentCheckpoint = "checkpoint-store"
	ComponentOracle     = "height-oracle"
	ComponentRPC        = "rpc-client"
	ComponentSink       = "log-sink"
)

var AllComponents = map[string]struct{}{
	ComponentScheduler:  {},
	ComponentSyncEngine: {},
	ComponentCheckpoint: {},
	ComponentOracle:     {},
	ComponentRPC:        {},
	ComponentSink:       {},
}
