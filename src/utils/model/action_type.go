package model

import (
	"database/sql/driver"
	"fmt"
)

// CREATE TYPE onchain_action_type AS ENUM ('MINT', 'UPDATE_STATUS', 'BURN');
type ActionType string

const (
	ActionTypeMint         ActionType = "MINT"
	ActionTypeUpdateStatus ActionType = "UPDATE_STATUS"
	ActionTypeBurn         ActionType = "BURN"
)

var ActionTypes = []ActionType{ActionTypeMint, ActionTypeUpdateStatus, ActionTypeBurn}

func (self ActionType) IsValid() bool {
	switch self {
	case ActionTypeMint, ActionTypeUpdateStatus, ActionTypeBurn:
		return true
	}
	return false
}

func (self ActionType) String() string {
	return string(self)
}

func ParseActionType(s string) (ActionType, error) {
	action := ActionType(s)
	if !action.IsValid() {
		return "", fmt.Errorf("unknown action type: %q", s)
	}
	return action, nil
}

func (self *ActionType) Scan(value interface{}) error {
	s, err := scanString(value)
	if err != nil {
		return err
	}
	action, err := ParseActionType(s)
	if err != nil {
		return err
	}
	*self = action
	return nil
}

func (self ActionType) Value() (driver.Value, error) {
	return string(self), nil
}

// Contract statuses that are only reached after the event behind the action was published
func (self ActionType) ExpectedIn() []ContractStatus {
	switch self {
	case ActionTypeMint:
		return []ContractStatus{
			ContractStatusPaymentCompleted,
			ContractStatusCancellationRequested,
			ContractStatusCompleted,
			ContractStatusCanceled,
		}
	case ActionTypeUpdateStatus:
		return []ContractStatus{ContractStatusCompleted}
	case ActionTypeBurn:
		return []ContractStatus{ContractStatusCanceled}
	}
	return nil
}
