package report

import (
	"go.uber.org/atomic"
)

type DispatcherErrors struct {
	ContractNotFound    atomic.Uint64 `json:"contract_not_found"`
	Storage             atomic.Uint64 `json:"storage"`
	InvariantViolations atomic.Uint64 `json:"invariant_violations"`
}

type DispatcherState struct {
	EventsReceived    atomic.Uint64 `json:"events_received"`
	Submitted         atomic.Uint64 `json:"submitted"`
	Succeeded         atomic.Uint64 `json:"succeeded"`
	Failed            atomic.Uint64 `json:"failed"`
	LeftPending       atomic.Uint64 `json:"left_pending"`
	SkippedDuplicates atomic.Uint64 `json:"skipped_duplicates"`
}

type DispatcherReport struct {
	State  DispatcherState  `json:"state"`
	Errors DispatcherErrors `json:"errors"`
}
