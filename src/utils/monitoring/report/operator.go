package report

import (
	"go.uber.org/atomic"
)

type OperatorErrors struct {
	Throttled atomic.Uint64 `json:"throttled"`
	Rejected  atomic.Uint64 `json:"rejected"`
}

type OperatorState struct {
	RetriesRequested atomic.Uint64 `json:"retries_requested"`
	RetriesAccepted  atomic.Uint64 `json:"retries_accepted"`
}

type OperatorReport struct {
	State  OperatorState  `json:"state"`
	Errors OperatorErrors `json:"errors"`
}
