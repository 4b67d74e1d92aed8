package risk

import "time"

// Aggregator combines the analyzer outputs into a verdict using the active
// decision table.
type Aggregator struct {
	policy *PolicyHolder
	now    func() time.Time
}

// NewAggregator uses the defaults when policy is nil.
func NewAggregator(policy *PolicyHolder) *Aggregator {
	if policy == nil {
		policy = NewPolicyHolder(nil)
	}
	return &Aggregator{policy: policy, now: time.Now}
}

// OverallScore is the weighted sum of both sub-scores, rounded half up and
// clamped to [0, 100]. Weights are integer percentages so the arithmetic is
// exact.
func (d DecisionTable) OverallScore(behaviorScore, transactionScore int) int {
	b := clampScore(behaviorScore)
	t := clampScore(transactionScore)
	return clampScore((b*d.BehaviorWeight + t*d.TransactionWeight + 50) / 100)
}

// Aggregate builds the verdict. Behavior factors come first, then
// transaction factors, each in emission order.
func (a *Aggregator) Aggregate(actorID string, behavior, transaction AnalysisResult) *RiskVerdict {
	table := a.policy.Load().Decision
	overall := table.OverallScore(behavior.Score, transaction.Score)
	level, rec := table.Classify(overall)

	factors := make([]RiskFactor, 0, len(behavior.Factors)+len(transaction.Factors))
	factors = append(factors, behavior.Factors...)
	factors = append(factors, transaction.Factors...)

	var degraded []Signal
	if n := len(behavior.Degraded) + len(transaction.Degraded); n > 0 {
		degraded = make([]Signal, 0, n)
		degraded = append(degraded, behavior.Degraded...)
		degraded = append(degraded, transaction.Degraded...)
	}

	return &RiskVerdict{
		ActorID:              actorID,
		OverallScore:         overall,
		RiskLevel:            level,
		Recommendation:       rec,
		Factors:              factors,
		UserBehaviorScore:    clampScore(behavior.Score),
		TransactionRiskScore: clampScore(transaction.Score),
		Degraded:             degraded,
		Timestamp:            a.now().UTC(),
	}
}
