package models

import (
	"time"

	"github.com/zaqqye/scholarship_backend/internal/coin"
)

// ConfigRowID is the primary key of the singleton config row.
const ConfigRowID = 1

// ScholarshipConfig stores the singleton scholarship configuration.
type ScholarshipConfig struct {
	ID                uint         `gorm:"primaryKey;autoIncrement:false"`
	Admin             string       `gorm:"size:128;not null"`
	ScholarshipAmount coin.Uint128 `gorm:"type:varchar(40);not null"`
	Denom             string       `gorm:"size:128;not null"`
	CreatedAt         time.Time
}

// Student is one registry entry, keyed by the student's address.
type Student struct {
	Address   string `gorm:"size:128;primaryKey"`
	Approved  bool   `gorm:"not null;index"`
	Claimed   bool   `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentInstruction is an outbox row written in the same transaction as
// the claim that produced it. IDs are assigned in emission order.
type PaymentInstruction struct {
	ID           uint         `gorm:"primaryKey"`
	Recipient    string       `gorm:"size:128;not null;index"`
	Denom        string       `gorm:"size:128;not null"`
	Amount       coin.Uint128 `gorm:"type:varchar(40);not null"`
	Attempts     int          `gorm:"not null"`
	LastError    string       `gorm:"type:text"`
	Reference    string       `gorm:"size:256"`
	DispatchedAt *time.Time   `gorm:"index"`
	CreatedAt    time.Time
}
