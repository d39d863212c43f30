package model

import (
	"database/sql/driver"
	"fmt"
)

// CREATE TYPE contract_status AS ENUM ('PENDING', 'DECLINED', 'WITHDRAWN', 'ARTIST_SIGNED', 'PAYMENT_PENDING', 'PAYMENT_COMPLETED', 'CANCELLATION_REQUESTED', 'CANCELED', 'COMPLETED');
type ContractStatus string

const (
	ContractStatusPending               ContractStatus = "PENDING"
	ContractStatusDeclined              ContractStatus = "DECLINED"
	ContractStatusWithdrawn             ContractStatus = "WITHDRAWN"
	ContractStatusArtistSigned          ContractStatus = "ARTIST_SIGNED"
	ContractStatusPaymentPending        ContractStatus = "PAYMENT_PENDING"
	ContractStatusPaymentCompleted      ContractStatus = "PAYMENT_COMPLETED"
	ContractStatusCancellationRequested ContractStatus = "CANCELLATION_REQUESTED"
	ContractStatusCanceled              ContractStatus = "CANCELED"
	ContractStatusCompleted             ContractStatus = "COMPLETED"
)

var ContractStatuses = []ContractStatus{
	ContractStatusPending,
	ContractStatusDeclined,
	ContractStatusWithdrawn,
	ContractStatusArtistSigned,
	ContractStatusPaymentPending,
	ContractStatusPaymentCompleted,
	ContractStatusCancellationRequested,
	ContractStatusCanceled,
	ContractStatusCompleted,
}

func (self ContractStatus) IsValid() bool {
	switch self {
	case ContractStatusPending,
		ContractStatusDeclined,
		ContractStatusWithdrawn,
		ContractStatusArtistSigned,
		ContractStatusPaymentPending,
		ContractStatusPaymentCompleted,
		ContractStatusCancellationRequested,
		ContractStatusCanceled,
		ContractStatusCompleted:
		return true
	}
	return false
}

func (self ContractStatus) IsTerminal() bool {
	switch self {
	case ContractStatusWithdrawn, ContractStatusCanceled, ContractStatusCompleted:
		return true
	}
	return false
}

func (self ContractStatus) String() string {
	return string(self)
}

func (self *ContractStatus) Scan(value interface{}) error {
	s, err := scanString(value)
	if err != nil {
		return err
	}
	status := ContractStatus(s)
	if !status.IsValid() {
		return fmt.Errorf("unknown contract status: %q", s)
	}
	*self = status
	return nil
}

func (self ContractStatus) Value() (driver.Value, error) {
	return string(self), nil
}

func scanString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", fmt.Errorf("unsupported enum value type: %T", value)
}
