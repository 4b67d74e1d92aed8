package models

import (
	"time"

	"github.com/lib/pq"
)

// FraudCheck is the audit record of one risk verdict. Rows are append-only;
// a re-check of the same transaction produces a new row.
type FraudCheck struct {
	ID                   string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ActorID              string         `gorm:"not null;index:idx_fraud_checks_actor,priority:1" json:"actor_id"`
	Amount               int64          `gorm:"not null" json:"amount"`
	PaymentMethod        string         `gorm:"not null" json:"payment_method"`
	IPAddress            string         `gorm:"index" json:"ip_address"`
	DeviceHash           string         `json:"device_hash,omitempty"`
	ItemCount            int            `json:"item_count"`
	OverallScore         int            `gorm:"not null;check:overall_score >= 0 AND overall_score <= 100" json:"overall_score"`
	RiskLevel            string         `gorm:"not null;index" json:"risk_level"`
	Recommendation       string         `gorm:"not null" json:"recommendation"`
	UserBehaviorScore    int            `json:"user_behavior_score"`
	TransactionRiskScore int            `json:"transaction_risk_score"`
	ModelScore           int            `json:"model_score"`
	Factors              pq.StringArray `gorm:"type:text[]" json:"factors"`
	FactorSources        pq.StringArray `gorm:"type:text[]" json:"factor_sources"`
	DegradedSignals      pq.StringArray `gorm:"type:text[]" json:"degraded_signals"`
	Metadata             JSON           `gorm:"type:jsonb" json:"metadata,omitempty"`
	CheckedAt            time.Time      `gorm:"not null;index:idx_fraud_checks_actor,priority:2,sort:desc" json:"checked_at"`
	CreatedAt            time.Time      `json:"created_at"`
}

// FraudCheckFilter narrows analytics listings.
type FraudCheckFilter struct {
	ActorID   string
	RiskLevel string
	From      time.Time
	To        time.Time
}

// RiskLevelCount is one bucket of the level distribution.
type RiskLevelCount struct {
	RiskLevel string `json:"risk_level"`
	Count     int64  `json:"count"`
}

// DailyRiskTrend aggregates verdicts per calendar day.
type DailyRiskTrend struct {
	Day          time.Time `json:"day"`
	Checks       int64     `json:"checks"`
	AverageScore float64   `json:"average_score"`
	Blocked      int64     `json:"blocked"`
}

// FraudCheckStats is the analytics summary over a time range.
type FraudCheckStats struct {
	From         time.Time        `json:"from"`
	To           time.Time        `json:"to"`
	Total        int64            `json:"total"`
	AverageScore float64          `json:"average_score"`
	Degraded     int64            `json:"degraded"`
	Distribution []RiskLevelCount `json:"distribution"`
	Trend        []DailyRiskTrend `json:"trend"`
}
