package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const TableActionLog = "action_logs"

// Actor of entries made by the system itself, e.g. payment webhooks or operator retries
const SystemActorID int64 = 0

type ActionLogType string

const (
	ActionLogOffered               ActionLogType = "OFFERED"
	ActionLogReoffered             ActionLogType = "REOFFERED"
	ActionLogDeclined              ActionLogType = "DECLINED"
	ActionLogWithdrawn             ActionLogType = "WITHDRAWN"
	ActionLogArtistSigned          ActionLogType = "ARTIST_SIGNED"
	ActionLogLeaderSigned          ActionLogType = "LEADER_SIGNED"
	ActionLogPaymentCompleted      ActionLogType = "PAYMENT_COMPLETED"
	ActionLogCancellationRequested ActionLogType = "CANCELLATION_REQUESTED"
	ActionLogCancellationRejected  ActionLogType = "CANCELLATION_REJECTED"
	ActionLogCanceled              ActionLogType = "CANCELED"
	ActionLogCompleted             ActionLogType = "COMPLETED"
	ActionLogOnchainRetryRequested ActionLogType = "ONCHAIN_RETRY_REQUESTED"
)

func (self ActionLogType) String() string {
	return string(self)
}

func (self *ActionLogType) Scan(value interface{}) error {
	s, err := scanString(value)
	if err != nil {
		return fmt.Errorf("action log type: %w", err)
	}
	*self = ActionLogType(s)
	return nil
}

func (self ActionLogType) Value() (driver.Value, error) {
	return string(self), nil
}

// Append-only audit trail entry
type ActionLog struct {
	ID         int64         `gorm:"primaryKey"`
	ContractID int64         `gorm:"not null; index:idx_action_logs_contract_type"`
	ActorID    int64         `gorm:"not null; comment:0 means the system itself"`
	Type       ActionLogType `gorm:"not null; index:idx_action_logs_contract_type"`
	Memo       string
	CreatedAt  time.Time `gorm:"not null"`
}

func (ActionLog) TableName() string {
	return TableActionLog
}
