package risk

import (
	"context"

	"orus-risk/internal/logging"

	"golang.org/x/sync/errgroup"
)

// TransactionRiskAnalyzer scores a single descriptor: amount tiers, payment
// method, IP reputation, device and velocity.
//
// Analyze is not a pure query. Every call records the transaction in the
// actor's 1h and 24h velocity counters and in the IP's 1h counter, whether
// or not the transaction is later approved.
type TransactionRiskAnalyzer struct {
	resolver ReputationResolver
	velocity *VelocityTracker
	policy   *PolicyHolder
	t1       int64
	t2       int64
}

// NewTransactionRiskAnalyzer wires the analyzer. policy may be nil for the
// built-in defaults.
func NewTransactionRiskAnalyzer(resolver ReputationResolver, velocity *VelocityTracker, policy *PolicyHolder, config Config) *TransactionRiskAnalyzer {
	if resolver == nil {
		panic("reputation resolver is required")
	}
	if velocity == nil {
		panic("velocity tracker is required")
	}
	if policy == nil {
		policy = NewPolicyHolder(nil)
	}
	t1, t2 := config.AmountThresholdT1, config.AmountThresholdT2
	if t1 <= 0 {
		t1 = DefaultAmountThresholdT1
	}
	if t2 <= 0 {
		t2 = DefaultAmountThresholdT2
	}
	return &TransactionRiskAnalyzer{
		resolver: resolver,
		velocity: velocity,
		policy:   policy,
		t1:       t1,
		t2:       t2,
	}
}

// Analyze resolves the IP and advances velocity concurrently, then applies
// the rules in a fixed order so factor order does not depend on timing.
func (a *TransactionRiskAnalyzer) Analyze(ctx context.Context, desc TransactionDescriptor) TransactionResult {
	var (
		res             TransactionResult
		repDegraded     []Signal
		actorErr, ipErr error
		actorCounts     VelocityCounts
		ipHour          int64
	)

	var g errgroup.Group
	g.Go(func() error {
		res.Reputation, repDegraded = a.resolver.Resolve(ctx, desc.IPAddress)
		return nil
	})
	g.Go(func() error {
		actorCounts, actorErr = a.velocity.Observe(ctx, SubjectActor, desc.ActorID)
		ipHour, ipErr = a.velocity.ObserveWindow(ctx, SubjectIP, desc.IPAddress, WindowHour)
		return nil
	})
	_ = g.Wait()

	policy := a.policy.Load()

	if desc.Amount > a.t1 {
		res.add(PointsHighAmount, LabelHighAmount, SourceTransactionRisk)
	}
	if desc.Amount > a.t2 {
		res.add(PointsVeryHighAmount, LabelVeryHighAmount, SourceTransactionRisk)
	}
	if policy.IsHighRiskMethod(desc.PaymentMethod) {
		res.add(PointsHighRiskMethod, LabelHighRiskMethod, SourceTransactionRisk)
	}

	if res.Reputation.Anonymized() {
		res.add(PointsAnonymizedIP, LabelAnonymizedIP, SourceTransactionRisk)
	}
	if res.Reputation.IsBlacklisted {
		res.add(PointsBlacklistedIP, LabelBlacklistedIP, SourceTransactionRisk)
	}
	for _, s := range repDegraded {
		res.degrade(s, SourceTransactionRisk)
	}

	if policy.IsEmulator(desc.DeviceFingerprint) {
		res.add(PointsEmulator, LabelEmulator, SourceTransactionRisk)
	}

	if actorErr == nil {
		res.ActorVelocity = actorCounts
		if actorCounts.Hour > ActorHourlyLimit {
			res.add(PointsActorHourly, LabelActorHourly, SourceTransactionRisk)
		}
		if actorCounts.Day > ActorDailyLimit {
			res.add(PointsActorDaily, LabelActorDaily, SourceTransactionRisk)
		}
	}
	if ipErr == nil {
		res.IPVelocity = VelocityCounts{Hour: ipHour}
		if ipHour > IPHourlyLimit {
			res.add(PointsIPHourly, LabelIPHourly, SourceTransactionRisk)
		}
	}
	if actorErr != nil || ipErr != nil {
		logging.L(ctx).Warn("velocity counters unavailable",
			"actor_id", desc.ActorID, "actor_error", actorErr, "ip_error", ipErr)
		res.degrade(SignalVelocity, SourceTransactionRisk)
	}

	res.clamp()
	return res
}
