package risk

import (
	"context"
	"time"

	"orus-risk/internal/logging"
	"orus-risk/internal/utils/validation"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type service struct {
	behavior    BehaviorAnalyzer
	transaction TransactionAnalyzer
	aggregator  *Aggregator
	model       LinearModel
	recorder    Recorder
	metrics     MetricsCollector
	t2          int64
}

// Dependencies groups the collaborators of NewService. Recorder and Metrics
// are optional.
type Dependencies struct {
	Behavior    BehaviorAnalyzer
	Transaction TransactionAnalyzer
	Aggregator  *Aggregator
	Recorder    Recorder
	Metrics     MetricsCollector
}

// NewService creates the risk engine.
func NewService(deps Dependencies, config Config) Service {
	if deps.Behavior == nil {
		panic("behavior analyzer is required")
	}
	if deps.Transaction == nil {
		panic("transaction analyzer is required")
	}
	if deps.Aggregator == nil {
		deps.Aggregator = NewAggregator(nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = &NoopMetricsCollector{}
	}
	t2 := config.AmountThresholdT2
	if t2 <= 0 {
		t2 = DefaultAmountThresholdT2
	}
	return &service{
		behavior:    deps.Behavior,
		transaction: deps.Transaction,
		aggregator:  deps.Aggregator,
		model:       DefaultLinearModel(),
		recorder:    deps.Recorder,
		metrics:     deps.Metrics,
		t2:          t2,
	}
}

func (s *service) ScoreTransaction(ctx context.Context, actorID string, desc TransactionDescriptor) (*RiskVerdict, error) {
	start := time.Now()
	if err := ValidateDescriptor(actorID, desc); err != nil {
		s.metrics.RecordValidationFailure()
		return nil, err
	}
	desc.ActorID = actorID
	desc.IPAddress = validation.NormalizeIP(desc.IPAddress)

	// The analyzers never fail; errgroup only joins them.
	var (
		behavior    BehaviorResult
		transaction TransactionResult
		g           errgroup.Group
	)
	g.Go(func() error {
		behavior = s.behavior.Analyze(ctx, actorID)
		return nil
	})
	g.Go(func() error {
		transaction = s.transaction.Analyze(ctx, desc)
		return nil
	})
	_ = g.Wait()

	verdict := s.aggregator.Aggregate(actorID, behavior.AnalysisResult, transaction.AnalysisResult)
	verdict.ID = uuid.NewString()
	verdict.ModelScore = s.model.Score(Features(desc, behavior, transaction, s.t2))

	if verdict.IsDegraded() {
		for _, sig := range verdict.Degraded {
			s.metrics.RecordDegradation(sig)
		}
		logging.L(ctx).Warn("risk verdict degraded",
			"actor_id", actorID, "verdict_id", verdict.ID, "signals", verdict.Degraded)
	}

	if s.recorder != nil {
		s.recorder.Record(ctx, actorID, desc, verdict)
	}

	s.metrics.RecordVerdict(verdict.RiskLevel, verdict.OverallScore, time.Since(start))
	return verdict, nil
}
