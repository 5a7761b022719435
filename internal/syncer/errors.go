package syncer

import "fmt"

// FetchError is returned when a log query for a contract fails. It is fatal
// to the whole run: the checkpoint is not advanced for the failed sub-range.
type FetchError struct {
	Contract string
	Range    BlockRange
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch events for %s over [%d, %d]: %v",
		e.Contract, e.Range.From, e.Range.To, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SinkError is returned when the persistence collaborator rejects a batch.
// Fatal for the same reason as FetchError.
type SinkError struct {
	Contract string
	Range    BlockRange
	Err      error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("persistence collaborator rejected %s batch for [%d, %d]: %v",
		e.Contract, e.Range.From, e.Range.To, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// CheckpointError is returned when the checkpoint save after a sub-range
// fails. The in-memory checkpoint is no longer trustworthy, so the process
// must terminate and be restarted from the last persisted value.
type CheckpointError struct {
	Height uint64
	Err    error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("failed to persist checkpoint at height %d: %v", e.Height, e.Err)
}

func (e *CheckpointError) Unwrap() error {
	return e.Err
}
