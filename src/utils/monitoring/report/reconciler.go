package report

import (
	"go.uber.org/atomic"
)

type ReconcilerErrors struct {
	Query        atomic.Uint64 `json:"query"`
	Storage      atomic.Uint64 `json:"storage"`
	Panics       atomic.Uint64 `json:"panics"`
	CasConflicts atomic.Uint64 `json:"cas_conflicts"`
	Publish      atomic.Uint64 `json:"publish"`
}

type ReconcilerState struct {
	Runs                atomic.Uint64 `json:"runs"`
	RecordsChecked      atomic.Uint64 `json:"records_checked"`
	RecordsSucceeded    atomic.Uint64 `json:"records_succeeded"`
	RecordsFailed       atomic.Uint64 `json:"records_failed"`
	RecordsUnknown      atomic.Uint64 `json:"records_unknown"`
	EventsRepublished   atomic.Uint64 `json:"events_republished"`
	LastRunTimestamp    atomic.Int64  `json:"last_run_timestamp"`
	LastRunDurationMs   atomic.Int64  `json:"last_run_duration_ms"`
	LastRunStaleRecords atomic.Uint64 `json:"last_run_stale_records"`
}

type ReconcilerReport struct {
	State  ReconcilerState  `json:"state"`
	Errors ReconcilerErrors `json:"errors"`
}
