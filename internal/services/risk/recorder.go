package risk

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"orus-risk/internal/logging"
	"orus-risk/internal/models"
	"orus-risk/internal/retry"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Drop reasons reported to metrics.
const (
	dropQueueFull = "queue_full"
	dropCancelled = "cancelled"
	dropClosed    = "closed"
)

// FraudCheckRecorder persists verdicts on background workers. Record never
// waits on storage: under the drop_oldest policy a full queue evicts its
// oldest entry, under block the caller waits for space or its own context.
type FraudCheckRecorder struct {
	sink    VerdictSink
	config  RecorderConfig
	metrics MetricsCollector

	queue chan *models.FraudCheck
	mu    sync.RWMutex
	// closed is guarded by mu; senders hold the read lock.
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFraudCheckRecorder validates the config and starts the workers.
func NewFraudCheckRecorder(sink VerdictSink, config RecorderConfig, metrics MetricsCollector) (*FraudCheckRecorder, error) {
	if sink == nil {
		return nil, fmt.Errorf("verdict sink is required")
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultRecorderQueueSize
	}
	if config.Workers <= 0 {
		config.Workers = DefaultRecorderWorkers
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultRecorderAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultRecorderRetryDelay
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultRecorderWriteTimeout
	}
	switch config.Policy {
	case "":
		config.Policy = QueuePolicyDropOldest
	case QueuePolicyDropOldest, QueuePolicyBlock:
	default:
		return nil, fmt.Errorf("unknown recorder queue policy %q", config.Policy)
	}
	if len(config.DeviceHashKey) > blake2b.Size {
		return nil, fmt.Errorf("device hash key longer than %d bytes", blake2b.Size)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &FraudCheckRecorder{
		sink:    sink,
		config:  config,
		metrics: metrics,
		queue:   make(chan *models.FraudCheck, config.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	for i := 0; i < config.Workers; i++ {
		r.wg.Add(1)
		go r.work()
	}
	return r, nil
}

// Record enqueues the verdict for persistence. It never returns an error;
// anything that prevents persistence is logged and counted.
func (r *FraudCheckRecorder) Record(ctx context.Context, actorID string, desc TransactionDescriptor, verdict *RiskVerdict) {
	if verdict == nil {
		return
	}
	check := r.BuildFraudCheck(actorID, desc, verdict)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop(ctx, check, dropClosed)
		return
	}

	select {
	case r.queue <- check:
		r.metrics.RecordQueueDepth(len(r.queue))
		return
	default:
	}

	if r.config.Policy == QueuePolicyBlock {
		select {
		case r.queue <- check:
			r.metrics.RecordQueueDepth(len(r.queue))
		case <-ctx.Done():
			r.drop(ctx, check, dropCancelled)
		}
		return
	}

	// Drop oldest. Workers may drain concurrently, so both steps are
	// non-blocking.
	select {
	case oldest := <-r.queue:
		r.drop(ctx, oldest, dropQueueFull)
	default:
	}
	select {
	case r.queue <- check:
		r.metrics.RecordQueueDepth(len(r.queue))
	default:
		r.drop(ctx, check, dropQueueFull)
	}
}

// Close stops accepting verdicts and waits for the queue to drain. When ctx
// expires first, in-flight retries are abandoned and ctx.Err is returned.
func (r *FraudCheckRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRecorderClosed
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}

func (r *FraudCheckRecorder) work() {
	defer r.wg.Done()
	for check := range r.queue {
		r.metrics.RecordQueueDepth(len(r.queue))
		r.persist(check)
	}
}

func (r *FraudCheckRecorder) persist(check *models.FraudCheck) {
	err := retry.Do(r.ctx, r.config.MaxAttempts, r.config.RetryDelay, func() error {
		wctx, cancel := context.WithTimeout(r.ctx, r.config.WriteTimeout)
		defer cancel()
		return r.sink.Create(wctx, check)
	})
	if err != nil {
		r.metrics.RecordPersistResult("error")
		logging.L(r.ctx).Warn("fraud check not persisted",
			"fraud_check_id", check.ID, "actor_id", check.ActorID, "error", err)
		return
	}
	r.metrics.RecordPersistResult("ok")
}

func (r *FraudCheckRecorder) drop(ctx context.Context, check *models.FraudCheck, reason string) {
	r.metrics.RecordRecorderDrop(reason)
	logging.L(ctx).Warn("fraud check dropped",
		"fraud_check_id", check.ID, "actor_id", check.ActorID, "reason", reason)
}

// BuildFraudCheck converts a verdict into its audit row. The device
// fingerprint is stored only as a BLAKE2b digest.
func (r *FraudCheckRecorder) BuildFraudCheck(actorID string, desc TransactionDescriptor, verdict *RiskVerdict) *models.FraudCheck {
	id := verdict.ID
	if id == "" {
		id = uuid.NewString()
	}
	checkedAt := verdict.Timestamp
	if checkedAt.IsZero() {
		checkedAt = time.Now().UTC()
	}

	factors := make([]string, len(verdict.Factors))
	sources := make([]string, len(verdict.Factors))
	for i, f := range verdict.Factors {
		factors[i] = f.Label
		sources[i] = string(f.Source)
	}
	degraded := make([]string, len(verdict.Degraded))
	for i, s := range verdict.Degraded {
		degraded[i] = string(s)
	}

	return &models.FraudCheck{
		ID:                   id,
		ActorID:              actorID,
		Amount:               desc.Amount,
		PaymentMethod:        string(desc.PaymentMethod),
		IPAddress:            desc.IPAddress,
		DeviceHash:           r.hashDevice(desc.DeviceFingerprint),
		ItemCount:            len(desc.Items),
		OverallScore:         verdict.OverallScore,
		RiskLevel:            string(verdict.RiskLevel),
		Recommendation:       string(verdict.Recommendation),
		UserBehaviorScore:    verdict.UserBehaviorScore,
		TransactionRiskScore: verdict.TransactionRiskScore,
		ModelScore:           verdict.ModelScore,
		Factors:              factors,
		FactorSources:        sources,
		DegradedSignals:      degraded,
		Metadata: models.JSON{
			"item_count":     len(desc.Items),
			"total_quantity": desc.TotalQuantity(),
		},
		CheckedAt: checkedAt,
	}
}

func (r *FraudCheckRecorder) hashDevice(fingerprint string) string {
	if fingerprint == "" {
		return ""
	}
	if len(r.config.DeviceHashKey) == 0 {
		sum := blake2b.Sum256([]byte(fingerprint))
		return hex.EncodeToString(sum[:])
	}
	h, err := blake2b.New256(r.config.DeviceHashKey)
	if err != nil {
		// Key length is checked in the constructor.
		sum := blake2b.Sum256([]byte(fingerprint))
		return hex.EncodeToString(sum[:])
	}
	h.Write([]byte(fingerprint))
	return hex.EncodeToString(h.Sum(nil))
}
