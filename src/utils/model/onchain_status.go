package model

import (
	"database/sql/driver"
	"fmt"
)

// CREATE TYPE onchain_status AS ENUM ('PENDING', 'SUCCEEDED', 'FAILED');
type OnchainStatus string

const (
	OnchainStatusPending   OnchainStatus = "PENDING"
	OnchainStatusSucceeded OnchainStatus = "SUCCEEDED"
	OnchainStatusFailed    OnchainStatus = "FAILED"
)

func (self OnchainStatus) IsValid() bool {
	switch self {
	case OnchainStatusPending, OnchainStatusSucceeded, OnchainStatusFailed:
		return true
	}
	return false
}

func (self OnchainStatus) String() string {
	return string(self)
}

func (self *OnchainStatus) Scan(value interface{}) error {
	s, err := scanString(value)
	if err != nil {
		return err
	}
	status := OnchainStatus(s)
	if !status.IsValid() {
		return fmt.Errorf("unknown onchain status: %q", s)
	}
	*self = status
	return nil
}

func (self OnchainStatus) Value() (driver.Value, error) {
	return string(self), nil
}
