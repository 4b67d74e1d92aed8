package risk

import (
	"fmt"
	"strings"
	"time"
)

// PaymentMethod is the closed set of payment methods a descriptor may carry.
type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodDebitCard      PaymentMethod = "debit_card"
	PaymentMethodPayPal         PaymentMethod = "paypal"
	PaymentMethodApplePay       PaymentMethod = "apple_pay"
	PaymentMethodGooglePay      PaymentMethod = "google_pay"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodWallet         PaymentMethod = "wallet"
	PaymentMethodCrypto         PaymentMethod = "crypto"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

var paymentMethods = map[PaymentMethod]struct{}{
	PaymentMethodCard:           {},
	PaymentMethodDebitCard:      {},
	PaymentMethodPayPal:         {},
	PaymentMethodApplePay:       {},
	PaymentMethodGooglePay:      {},
	PaymentMethodBankTransfer:   {},
	PaymentMethodWallet:         {},
	PaymentMethodCrypto:         {},
	PaymentMethodCashOnDelivery: {},
}

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	_, ok := paymentMethods[m]
	return ok
}

// ParsePaymentMethod normalizes s and checks it against the known set.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown payment method %q", s)
	}
	return m, nil
}

// Item is one line of the order being scored.
type Item struct {
	SKU      string   `json:"sku,omitempty"`
	Quantity int      `json:"quantity"`
	Value    int64    `json:"value"` // minor units, per unit
	Weight   *float64 `json:"weight,omitempty"`
}

// TransactionDescriptor is the immutable input of one risk check.
type TransactionDescriptor struct {
	ActorID           string        `json:"actor_id"`
	Amount            int64         `json:"amount"` // minor units
	PaymentMethod     PaymentMethod `json:"payment_method"`
	IPAddress         string        `json:"ip_address"`
	DeviceFingerprint string        `json:"device_fingerprint,omitempty"`
	Items             []Item        `json:"items,omitempty"`
}

// TotalQuantity sums item quantities.
func (d TransactionDescriptor) TotalQuantity() int {
	total := 0
	for _, it := range d.Items {
		total += it.Quantity
	}
	return total
}

// HistoricalTransaction is the slice of a past transaction the analyzers need.
type HistoricalTransaction struct {
	Amount        int64
	PaymentMethod PaymentMethod
	Timestamp     time.Time
}

// ActorHistorySnapshot holds up to the configured limit of past transactions,
// most recent first. Built fresh per request and never cached.
type ActorHistorySnapshot struct {
	ActorID      string
	Transactions []HistoricalTransaction
}

// Len returns the number of transactions in the snapshot.
func (s ActorHistorySnapshot) Len() int {
	return len(s.Transactions)
}

// CountSince counts transactions at or after t.
func (s ActorHistorySnapshot) CountSince(t time.Time) int {
	n := 0
	for _, tx := range s.Transactions {
		if !tx.Timestamp.Before(t) {
			n++
		}
	}
	return n
}

// MeanAmount returns the arithmetic mean amount, 0 for an empty snapshot.
func (s ActorHistorySnapshot) MeanAmount() float64 {
	if len(s.Transactions) == 0 {
		return 0
	}
	var sum float64
	for _, tx := range s.Transactions {
		sum += float64(tx.Amount)
	}
	return sum / float64(len(s.Transactions))
}

// DistinctPaymentMethods counts the different payment methods used.
func (s ActorHistorySnapshot) DistinctPaymentMethods() int {
	seen := make(map[PaymentMethod]struct{}, 4)
	for _, tx := range s.Transactions {
		seen[tx.PaymentMethod] = struct{}{}
	}
	return len(seen)
}

// SubjectKind names what a velocity counter is keyed on.
type SubjectKind string

const (
	SubjectActor SubjectKind = "actor"
	SubjectIP    SubjectKind = "ip"
)

// VelocityCounts are the post-increment counts of both tracked windows.
type VelocityCounts struct {
	Hour int64 `json:"hour"`
	Day  int64 `json:"day"`
}

// IPReputation is what the resolver knows about an address.
type IPReputation struct {
	IP            string    `json:"ip"`
	IsVPN         bool      `json:"is_vpn"`
	IsTor         bool      `json:"is_tor"`
	IsBlacklisted bool      `json:"is_blacklisted"`
	CountryCode   string    `json:"country_code,omitempty"`
	CheckedAt     time.Time `json:"checked_at"`
}

// Anonymized reports a VPN or Tor exit.
func (r IPReputation) Anonymized() bool {
	return r.IsVPN || r.IsTor
}

// FactorSource identifies the analyzer that emitted a factor.
type FactorSource string

const (
	SourceUserBehavior    FactorSource = "user_behavior"
	SourceTransactionRisk FactorSource = "transaction_risk"
)

// RiskFactor is one labeled contributor to a score.
type RiskFactor struct {
	Label  string       `json:"label"`
	Source FactorSource `json:"source"`
}

// Signal names an upstream source whose absence degrades a verdict.
type Signal string

const (
	SignalIPReputation Signal = "ip_reputation"
	SignalIPBlacklist  Signal = "ip_blacklist"
	SignalVelocity     Signal = "velocity"
	SignalHistory      Signal = "history"
)

// Label is the human readable name used in degradation factors.
func (s Signal) Label() string {
	switch s {
	case SignalIPReputation:
		return "IP reputation"
	case SignalIPBlacklist:
		return "IP blacklist"
	case SignalVelocity:
		return "velocity counters"
	case SignalHistory:
		return "transaction history"
	default:
		return string(s)
	}
}

// RiskLevel is the discrete classification of an overall score.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// Valid reports whether l is one of the four levels.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical:
		return true
	}
	return false
}

// Recommendation is the action the caller should take.
type Recommendation string

const (
	RecommendationApprove Recommendation = "approve"
	RecommendationVerify  Recommendation = "request_verification"
	RecommendationReview  Recommendation = "manual_review"
	RecommendationBlock   Recommendation = "block"
)

// Valid reports whether r is a known recommendation.
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendationApprove, RecommendationVerify, RecommendationReview, RecommendationBlock:
		return true
	}
	return false
}

// Description is the operator facing sentence for r.
func (r Recommendation) Description() string {
	switch r {
	case RecommendationApprove:
		return "Approve transaction normally"
	case RecommendationVerify:
		return "Request additional verification"
	case RecommendationReview:
		return "Manual review required before processing"
	case RecommendationBlock:
		return "Block transaction immediately"
	default:
		return string(r)
	}
}

// AnalysisResult is the output of one analyzer.
type AnalysisResult struct {
	Score    int
	Factors  []RiskFactor
	Degraded []Signal
}

func (r *AnalysisResult) add(points int, label string, source FactorSource) {
	r.Score += points
	r.Factors = append(r.Factors, RiskFactor{Label: label, Source: source})
}

func (r *AnalysisResult) degrade(signal Signal, source FactorSource) {
	r.Degraded = append(r.Degraded, signal)
	r.Factors = append(r.Factors, RiskFactor{Label: DegradationLabelPrefix + signal.Label(), Source: source})
}

func (r *AnalysisResult) clamp() {
	r.Score = clampScore(r.Score)
}

// HistoryStats are the aggregate statistics the behavior rules looked at.
type HistoryStats struct {
	Transactions    int     `json:"transactions"`
	Last24h         int     `json:"last_24h"`
	MeanAmount      float64 `json:"mean_amount"`
	OutlierCount    int     `json:"outlier_count"`
	DistinctMethods int     `json:"distinct_methods"`
}

// BehaviorResult is the UserBehaviorAnalyzer output.
type BehaviorResult struct {
	AnalysisResult
	Stats HistoryStats
}

// TransactionResult is the TransactionRiskAnalyzer output.
type TransactionResult struct {
	AnalysisResult
	Reputation    IPReputation
	ActorVelocity VelocityCounts
	IPVelocity    VelocityCounts
}

// RiskVerdict is the immutable outcome of one ScoreTransaction call.
type RiskVerdict struct {
	ID                   string         `json:"id"`
	ActorID              string         `json:"actor_id"`
	OverallScore         int            `json:"overall_score"`
	RiskLevel            RiskLevel      `json:"risk_level"`
	Recommendation       Recommendation `json:"recommendation"`
	Factors              []RiskFactor   `json:"factors"`
	UserBehaviorScore    int            `json:"user_behavior_score"`
	TransactionRiskScore int            `json:"transaction_risk_score"`
	ModelScore           int            `json:"model_score"`
	Degraded             []Signal       `json:"degraded,omitempty"`
	Timestamp            time.Time      `json:"timestamp"`
}

// IsDegraded reports whether any signal source was unavailable.
func (v *RiskVerdict) IsDegraded() bool {
	return len(v.Degraded) > 0
}

// HasFactor reports whether a factor with the given label was emitted.
func (v *RiskVerdict) HasFactor(label string) bool {
	for _, f := range v.Factors {
		if f.Label == label {
			return true
		}
	}
	return false
}

// Config holds the engine's scoring and infrastructure knobs.
type Config struct {
	AmountThresholdT1 int64
	AmountThresholdT2 int64
	HistoryLimit      int
	ReputationTTL     time.Duration
	OracleTimeout     time.Duration
	BlacklistTimeout  time.Duration
	Recorder          RecorderConfig
}

// RecorderConfig controls the audit queue.
type RecorderConfig struct {
	QueueSize    int
	Workers      int
	Policy       QueuePolicy
	MaxAttempts  int
	RetryDelay   time.Duration
	WriteTimeout time.Duration
	// DeviceHashKey keys the BLAKE2b digest of device fingerprints.
	DeviceHashKey []byte
}

// QueuePolicy decides what happens when the audit queue is full.
type QueuePolicy string

const (
	QueuePolicyDropOldest QueuePolicy = "drop_oldest"
	QueuePolicyBlock      QueuePolicy = "block"
)

func clampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
