package model

import (
	"database/sql"
	"fmt"
	"time"
)

const TableOnchainRecord = "onchain_records"

// CREATE UNIQUE INDEX "idx_onchain_records_succeeded" ON "onchain_records" ("contract_id", "action_type") WHERE status = 'SUCCEEDED'
type OnchainRecord struct {
	ID         int64          `gorm:"primaryKey; comment:Numerical id of the record"`
	ContractID int64          `gorm:"not null; index"`
	ActionType ActionType     `gorm:"not null; type:onchain_action_type"`
	Status     OnchainStatus  `gorm:"not null; type:onchain_status"`
	TxHash     sql.NullString `gorm:"comment:Set only once the action SUCCEEDED"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (OnchainRecord) TableName() string {
	return TableOnchainRecord
}

func NewOnchainRecord(contractID int64, action ActionType, now time.Time) *OnchainRecord {
	return &OnchainRecord{
		ContractID: contractID,
		ActionType: action,
		Status:     OnchainStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (self *OnchainRecord) IsPending() bool {
	return self.Status == OnchainStatusPending
}

func (self *OnchainRecord) SetSucceeded(txHash string, now time.Time) error {
	if !self.IsPending() {
		return fmt.Errorf("%w: record %d is %s, not PENDING", ErrConflictingState, self.ID, self.Status)
	}
	self.Status = OnchainStatusSucceeded
	self.TxHash = sql.NullString{String: txHash, Valid: true}
	self.UpdatedAt = now
	return nil
}

func (self *OnchainRecord) SetFailed(now time.Time) error {
	if !self.IsPending() {
		return fmt.Errorf("%w: record %d is %s, not PENDING", ErrConflictingState, self.ID, self.Status)
	}
	self.Status = OnchainStatusFailed
	self.UpdatedAt = now
	return nil
}
