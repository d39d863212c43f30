package contract

import (
	"fmt"

	"github.com/artcommission/anchor/src/utils/model"
)

var transitions = map[model.ContractStatus][]model.ContractStatus{
	model.ContractStatusPending: {
		model.ContractStatusDeclined,
		model.ContractStatusWithdrawn,
		model.ContractStatusArtistSigned,
	},
	model.ContractStatusDeclined: {
		model.ContractStatusPending,
		model.ContractStatusWithdrawn,
	},
	model.ContractStatusArtistSigned: {
		model.ContractStatusPaymentPending,
		model.ContractStatusWithdrawn,
	},
	model.ContractStatusPaymentPending: {
		model.ContractStatusPaymentCompleted,
	},
	model.ContractStatusPaymentCompleted: {
		model.ContractStatusCompleted,
		model.ContractStatusCancellationRequested,
	},
	model.ContractStatusCancellationRequested: {
		model.ContractStatusCanceled,
		model.ContractStatusPaymentCompleted,
	},
}

func CanTransition(from, to model.ContractStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Returned when a transition is attempted from a status that doesn't allow it.
// Matches model.ErrConflictingState with errors.Is.
type TransitionError struct {
	ContractID int64
	From       model.ContractStatus
	To         model.ContractStatus
}

func (self *TransitionError) Error() string {
	return fmt.Sprintf("%s: contract %d can't move from %s to %s", model.ErrConflictingState, self.ContractID, self.From, self.To)
}

func (self *TransitionError) Unwrap() error {
	return model.ErrConflictingState
}
