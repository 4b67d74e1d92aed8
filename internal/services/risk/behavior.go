package risk

import (
	"context"
	"time"

	"orus-risk/internal/logging"
	"orus-risk/internal/models"
)

// UserBehaviorAnalyzer scores an actor's own transaction history.
type UserBehaviorAnalyzer struct {
	history HistoryReader
	limit   int
	now     func() time.Time
}

// NewUserBehaviorAnalyzer reads at most limit transactions per analysis.
func NewUserBehaviorAnalyzer(history HistoryReader, limit int) *UserBehaviorAnalyzer {
	if history == nil {
		panic("history reader is required")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &UserBehaviorAnalyzer{history: history, limit: limit, now: time.Now}
}

// WithClock overrides the clock used for the 24 hour frequency rule.
func (a *UserBehaviorAnalyzer) WithClock(now func() time.Time) *UserBehaviorAnalyzer {
	a.now = now
	return a
}

// Analyze loads the snapshot and scores it. A failing history source yields
// a zero score marked degraded; it is not treated as a new actor.
func (a *UserBehaviorAnalyzer) Analyze(ctx context.Context, actorID string) BehaviorResult {
	snapshot, err := a.Snapshot(ctx, actorID)
	if err != nil {
		logging.L(ctx).Warn("transaction history unavailable", "actor_id", actorID, "error", err)
		var res BehaviorResult
		res.degrade(SignalHistory, SourceUserBehavior)
		return res
	}
	return ScoreHistory(snapshot, a.now())
}

// Snapshot converts the stored rows into the analyzer's view.
func (a *UserBehaviorAnalyzer) Snapshot(ctx context.Context, actorID string) (ActorHistorySnapshot, error) {
	rows, err := a.history.GetRecentTransactions(ctx, actorID, a.limit)
	if err != nil {
		return ActorHistorySnapshot{}, err
	}
	if len(rows) > a.limit {
		rows = rows[:a.limit]
	}
	return snapshotFromRows(actorID, rows), nil
}

func snapshotFromRows(actorID string, rows []models.Transaction) ActorHistorySnapshot {
	s := ActorHistorySnapshot{
		ActorID:      actorID,
		Transactions: make([]HistoricalTransaction, 0, len(rows)),
	}
	for _, row := range rows {
		s.Transactions = append(s.Transactions, HistoricalTransaction{
			Amount:        row.Amount,
			PaymentMethod: PaymentMethod(row.PaymentMethod),
			Timestamp:     row.CreatedAt,
		})
	}
	return s
}

// ScoreHistory applies the behavior rules to a snapshot. Rules are additive
// and independent.
func ScoreHistory(s ActorHistorySnapshot, now time.Time) BehaviorResult {
	var res BehaviorResult
	n := s.Len()
	res.Stats.Transactions = n

	if n == 0 {
		res.add(PointsNewActor, LabelNewActor, SourceUserBehavior)
		return res
	}

	res.Stats.Last24h = s.CountSince(now.Add(-WindowDay))
	if res.Stats.Last24h > HighFrequencyLimit {
		res.add(PointsHighFrequency, LabelHighFrequency, SourceUserBehavior)
	}

	mean := s.MeanAmount()
	res.Stats.MeanAmount = mean
	cutoff := mean * AmountAnomalyMultiplier
	for _, tx := range s.Transactions {
		if float64(tx.Amount) > cutoff {
			res.Stats.OutlierCount++
		}
	}
	if res.Stats.OutlierCount*100 > AmountAnomalyPercent*n {
		res.add(PointsAmountAnomaly, LabelAmountAnomaly, SourceUserBehavior)
	}

	res.Stats.DistinctMethods = s.DistinctPaymentMethods()
	if res.Stats.DistinctMethods > MethodDiversityLimit {
		res.add(PointsMethodDiversity, LabelMethodDiversity, SourceUserBehavior)
	}

	res.clamp()
	return res
}
