package risk

import "time"

// Score bounds
const (
	MinScore = 0
	MaxScore = 100
)

// Default configuration values
const (
	DefaultAmountThresholdT1    int64 = 500_000
	DefaultAmountThresholdT2    int64 = 1_000_000
	DefaultHistoryLimit               = 100
	DefaultReputationTTL              = time.Hour
	DefaultOracleTimeout              = 300 * time.Millisecond
	DefaultBlacklistTimeout           = 500 * time.Millisecond
	DefaultRecorderQueueSize          = 1024
	DefaultRecorderWorkers            = 2
	DefaultRecorderAttempts           = 3
	DefaultRecorderRetryDelay         = 200 * time.Millisecond
	DefaultRecorderWriteTimeout       = 5 * time.Second
	DefaultBehaviorWeight             = 40
	DefaultTransactionWeight          = 60
)

// Velocity windows
const (
	WindowHour = time.Hour
	WindowDay  = 24 * time.Hour
)

// User behavior rules
const (
	PointsNewActor        = 20
	PointsHighFrequency   = 30
	PointsAmountAnomaly   = 25
	PointsMethodDiversity = 15

	HighFrequencyLimit      = 5   // transactions in the last 24h
	AmountAnomalyMultiplier = 3.0 // times the actor's mean
	AmountAnomalyPercent    = 20  // share of outliers, exclusive
	MethodDiversityLimit    = 3   // distinct methods, exclusive
)

// Transaction rules
const (
	PointsHighAmount     = 25
	PointsVeryHighAmount = 40
	PointsHighRiskMethod = 10
	PointsAnonymizedIP   = 35
	PointsBlacklistedIP  = 50
	PointsEmulator       = 30
	PointsActorHourly    = 25
	PointsActorDaily     = 35
	PointsIPHourly       = 20

	ActorHourlyLimit = 3
	ActorDailyLimit  = 10
	IPHourlyLimit    = 5
)

// Factor labels
const (
	LabelNewActor        = "New actor, no transaction history"
	LabelHighFrequency   = "High transaction frequency in last 24 hours"
	LabelAmountAnomaly   = "Unusual transaction amounts relative to actor average"
	LabelMethodDiversity = "Multiple payment methods used"

	LabelHighAmount     = "High transaction amount"
	LabelVeryHighAmount = "Very high transaction amount"
	LabelHighRiskMethod = "Higher-risk payment method"
	LabelAnonymizedIP   = "VPN or Tor connection detected"
	LabelBlacklistedIP  = "Blacklisted IP address"
	LabelEmulator       = "Emulator or simulator device detected"
	LabelActorHourly    = "High transaction velocity in last hour"
	LabelActorDaily     = "High transaction velocity in last 24 hours"
	LabelIPHourly       = "Multiple transactions from same IP in last hour"

	DegradationLabelPrefix = "risk signal unavailable: "
)

// Cache key prefixes
const (
	VelocityKeyPrefix   = "velocity"
	ReputationKeyPrefix = "reputation:ip:"
	oracleBreakerKey    = "reputation_oracle"
)
