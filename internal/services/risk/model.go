package risk

import "math"

// ModelFeatures are the precomputed inputs of the linear model.
type ModelFeatures struct {
	AmountRatio   float64 // amount / T2
	ActorHourly   int64
	IPHourly      int64
	Anonymized    bool
	Blacklisted   bool
	HistoryLen    int
	TotalQuantity int
}

// LinearModel is a fixed weighting over ModelFeatures. It is never trained
// or updated at runtime and its output does not feed the overall score.
type LinearModel struct {
	AmountWeight      float64
	ActorHourlyWeight float64
	IPHourlyWeight    float64
	AnonymizedWeight  float64
	BlacklistWeight   float64
	NewActorWeight    float64
	QuantityWeight    float64
}

// DefaultLinearModel returns the built-in weights.
func DefaultLinearModel() LinearModel {
	return LinearModel{
		AmountWeight:      20,
		ActorHourlyWeight: 2,
		IPHourlyWeight:    1.5,
		AnonymizedWeight:  15,
		BlacklistWeight:   20,
		NewActorWeight:    5,
		QuantityWeight:    0.2,
	}
}

// Features extracts model inputs from a descriptor and the analyzer outputs.
func Features(desc TransactionDescriptor, behavior BehaviorResult, tx TransactionResult, t2 int64) ModelFeatures {
	if t2 <= 0 {
		t2 = DefaultAmountThresholdT2
	}
	return ModelFeatures{
		AmountRatio:   float64(desc.Amount) / float64(t2),
		ActorHourly:   tx.ActorVelocity.Hour,
		IPHourly:      tx.IPVelocity.Hour,
		Anonymized:    tx.Reputation.Anonymized(),
		Blacklisted:   tx.Reputation.IsBlacklisted,
		HistoryLen:    behavior.Stats.Transactions,
		TotalQuantity: desc.TotalQuantity(),
	}
}

// Score returns the rounded weighted sum clamped to [0, 100].
func (m LinearModel) Score(f ModelFeatures) int {
	s := math.Min(f.AmountRatio, 2) * m.AmountWeight
	s += float64(min(f.ActorHourly, 10)) * m.ActorHourlyWeight
	s += float64(min(f.IPHourly, 10)) * m.IPHourlyWeight
	if f.Anonymized {
		s += m.AnonymizedWeight
	}
	if f.Blacklisted {
		s += m.BlacklistWeight
	}
	if f.HistoryLen == 0 {
		s += m.NewActorWeight
	}
	s += float64(min(f.TotalQuantity, 50)) * m.QuantityWeight
	return clampScore(int(math.Round(math.Max(s, 0))))
}
