package repository

import (
	"fmt"

	"github.com/artcommission/anchor/src/utils/model"
)

// Contract was changed by someone else since it was read
type contractStatusError struct {
	id       int64
	expected model.ContractStatus
	actual   model.ContractStatus
}

func (self *contractStatusError) Error() string {
	return fmt.Sprintf("contract %d is %s, expected %s", self.id, self.actual, self.expected)
}

func (self *contractStatusError) Unwrap() error {
	return model.ErrConflictingState
}
