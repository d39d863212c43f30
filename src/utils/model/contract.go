package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const TableContract = "contracts"

// Persistent form of a contract. Mutations go through the contract package, never through these fields.
type Contract struct {
	ID              int64           `gorm:"primaryKey; comment:Numerical id of the contract"`
	ProjectID       int64           `gorm:"not null; index"`
	LeaderID        int64           `gorm:"not null; index; comment:Party commissioning the work"`
	ArtistID        int64           `gorm:"not null; index; comment:Party performing the work"`
	Title           string          `gorm:"not null"`
	Description     string          `gorm:"not null"`
	StartedAt       time.Time       `gorm:"not null"`
	EndedAt         time.Time       `gorm:"not null"`
	TotalAmount     int64           `gorm:"not null; comment:Smallest currency unit"`
	AppliedFeeRate  decimal.Decimal `gorm:"type:numeric(7,4); not null; comment:Fee rate frozen at creation"`
	LeaderSignature []byte
	ArtistSignature []byte
	NftImageUrl     string
	Status          ContractStatus `gorm:"not null; type:contract_status"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Contract) TableName() string {
	return TableContract
}
