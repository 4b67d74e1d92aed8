package models

import (
	"time"
)

// Transaction statuses
const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusRefunded  = "refunded"
)

// Transaction is a past order/payment attempt of an actor. The risk engine
// only reads this table; rows are written by the order pipeline.
type Transaction struct {
	ID                uint   `gorm:"primarykey"`
	ActorID           string `gorm:"not null;index:idx_transactions_actor_created,priority:1"`
	Amount            int64  `gorm:"not null"` // minor units
	Currency          string `gorm:"default:'USD'"`
	PaymentMethod     string `gorm:"not null"`
	Status            string `gorm:"not null;default:'pending'"`
	IPAddress         string
	DeviceFingerprint string
	Reference         string    // External order reference
	Metadata          JSON      `gorm:"type:jsonb"`
	CreatedAt         time.Time `gorm:"index:idx_transactions_actor_created,priority:2,sort:desc"`
	UpdatedAt         time.Time
}
