package events

import (
	"errors"
	"fmt"

	"github.com/artcommission/anchor/src/utils/model"
)

var ErrUnknownEvent = errors.New("unknown event")

type Kind string

const (
	KindPaid      Kind = "PAID"
	KindCompleted Kind = "COMPLETED"
	KindCanceled  Kind = "CANCELED"
)

// Domain event emitted after a contract transition is committed.
// Implemented only by the types in this package.
type Event interface {
	ContractID() int64
	Kind() Kind
	isEvent()
}

type ContractPaidEvent struct {
	contractID int64
}

func NewContractPaid(contractID int64) ContractPaidEvent {
	return ContractPaidEvent{contractID: contractID}
}

func (self ContractPaidEvent) ContractID() int64 { return self.contractID }
func (self ContractPaidEvent) Kind() Kind        { return KindPaid }
func (self ContractPaidEvent) isEvent()          {}

type ContractCompletedEvent struct {
	contractID int64
}

func NewContractCompleted(contractID int64) ContractCompletedEvent {
	return ContractCompletedEvent{contractID: contractID}
}

func (self ContractCompletedEvent) ContractID() int64 { return self.contractID }
func (self ContractCompletedEvent) Kind() Kind        { return KindCompleted }
func (self ContractCompletedEvent) isEvent()          {}

type ContractCanceledEvent struct {
	contractID int64
}

func NewContractCanceled(contractID int64) ContractCanceledEvent {
	return ContractCanceledEvent{contractID: contractID}
}

func (self ContractCanceledEvent) ContractID() int64 { return self.contractID }
func (self ContractCanceledEvent) Kind() Kind        { return KindCanceled }
func (self ContractCanceledEvent) isEvent()          {}

// On-chain action triggered by the event
func ActionFor(e Event) (model.ActionType, error) {
	switch e.(type) {
	case ContractPaidEvent:
		return model.ActionTypeMint, nil
	case ContractCompletedEvent:
		return model.ActionTypeUpdateStatus, nil
	case ContractCanceledEvent:
		return model.ActionTypeBurn, nil
	}
	return "", fmt.Errorf("%w: %T", ErrUnknownEvent, e)
}

// Event that triggers the action. Used when an operator re-requests a failed action.
func ForAction(action model.ActionType, contractID int64) (Event, error) {
	switch action {
	case model.ActionTypeMint:
		return NewContractPaid(contractID), nil
	case model.ActionTypeUpdateStatus:
		return NewContractCompleted(contractID), nil
	case model.ActionTypeBurn:
		return NewContractCanceled(contractID), nil
	}
	return nil, fmt.Errorf("%w: no event for action %q", ErrUnknownEvent, action)
}

func New(kind Kind, contractID int64) (Event, error) {
	switch kind {
	case KindPaid:
		return NewContractPaid(contractID), nil
	case KindCompleted:
		return NewContractCompleted(contractID), nil
	case KindCanceled:
		return NewContractCanceled(contractID), nil
	}
	return nil, fmt.Errorf("%w: kind %q", ErrUnknownEvent, kind)
}
