package risk

import (
	"context"
	"time"

	"orus-risk/internal/models"
)

// Service is the risk engine's entry point.
type Service interface {
	// ScoreTransaction validates the descriptor, runs both analyzers and
	// returns a verdict. Only input errors are returned; dependency failures
	// degrade the verdict instead.
	ScoreTransaction(ctx context.Context, actorID string, desc TransactionDescriptor) (*RiskVerdict, error)
}

// SignalStore is the short-TTL store behind velocity counters and the
// reputation cache. Implementations must make Increment atomic per key.
type SignalStore interface {
	// Increment adds one to key and returns the new value. The first
	// increment starts a window of length ttl after which the key reads 0.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Count returns the current value of a counter, 0 when absent or expired.
	Count(ctx context.Context, key string) (int64, error)
	// Get decodes the value under key into dest and reports whether it existed.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	// SetWithTTL stores value under key for ttl.
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// HistoryReader reads an actor's most recent transactions, newest first.
// Unknown actors yield an empty slice and no error.
type HistoryReader interface {
	GetRecentTransactions(ctx context.Context, actorID string, limit int) ([]models.Transaction, error)
}

// ReputationOracle classifies an address. It is treated as an external,
// possibly slow and unreliable, network dependency.
type ReputationOracle interface {
	Lookup(ctx context.Context, ip string) (OracleResult, error)
}

// OracleResult is the cacheable part of an IPReputation.
type OracleResult struct {
	IsVPN       bool   `json:"is_vpn"`
	IsTor       bool   `json:"is_tor"`
	CountryCode string `json:"country_code,omitempty"`
}

// BlacklistChecker answers whether an administrator blocked an address.
type BlacklistChecker interface {
	IsBlacklisted(ctx context.Context, ip string) (bool, error)
}

// ReputationResolver is what the transaction analyzer needs from the
// reputation layer. The returned signals list what could not be checked.
type ReputationResolver interface {
	Resolve(ctx context.Context, ip string) (IPReputation, []Signal)
}

// BehaviorAnalyzer scores an actor's history.
type BehaviorAnalyzer interface {
	Analyze(ctx context.Context, actorID string) BehaviorResult
}

// TransactionAnalyzer scores a single descriptor. Implementations advance
// velocity counters, so Analyze is not a pure query.
type TransactionAnalyzer interface {
	Analyze(ctx context.Context, desc TransactionDescriptor) TransactionResult
}

// VerdictSink persists audit records.
type VerdictSink interface {
	Create(ctx context.Context, check *models.FraudCheck) error
}

// Recorder hands verdicts off for persistence without blocking scoring.
type Recorder interface {
	Record(ctx context.Context, actorID string, desc TransactionDescriptor, verdict *RiskVerdict)
}
