package risk

import (
	"context"
	"errors"
	"sync"
	"time"

	"orus-risk/internal/models"

	"github.com/stretchr/testify/mock"
)

var errStoreDown = errors.New("store unavailable")

type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) GetRecentTransactions(ctx context.Context, actorID string, limit int) ([]models.Transaction, error) {
	args := m.Called(ctx, actorID, limit)
	rows, _ := args.Get(0).([]models.Transaction)
	return rows, args.Error(1)
}

type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) Lookup(ctx context.Context, ip string) (OracleResult, error) {
	args := m.Called(ctx, ip)
	return args.Get(0).(OracleResult), args.Error(1)
}

type MockBlacklist struct {
	mock.Mock
}

func (m *MockBlacklist) IsBlacklisted(ctx context.Context, ip string) (bool, error) {
	args := m.Called(ctx, ip)
	return args.Bool(0), args.Error(1)
}

type MockMetrics struct {
	mock.Mock
	NoopMetricsCollector
}

func (m *MockMetrics) RecordDegradation(signal Signal) {
	m.Called(signal)
}

func (m *MockMetrics) RecordValidationFailure() {
	m.Called()
}

func (m *MockMetrics) RecordBreakerTransition(from, to string, openCircuits int) {
	m.Called(from, to, openCircuits)
}

// staticHistory serves a fixed history per actor.
type staticHistory map[string][]models.Transaction

func (h staticHistory) GetRecentTransactions(_ context.Context, actorID string, limit int) ([]models.Transaction, error) {
	rows := h[actorID]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// staticOracle answers from a map, benign by default.
type staticOracle map[string]OracleResult

func (o staticOracle) Lookup(_ context.Context, ip string) (OracleResult, error) {
	return o[ip], nil
}

// staticBlacklist lists blocked addresses.
type staticBlacklist map[string]bool

func (b staticBlacklist) IsBlacklisted(_ context.Context, ip string) (bool, error) {
	return b[ip], nil
}

// slowOracle blocks until its context ends or release is closed.
type slowOracle struct {
	release chan struct{}
}

func (o *slowOracle) Lookup(ctx context.Context, _ string) (OracleResult, error) {
	select {
	case <-o.release:
		return OracleResult{}, nil
	case <-time.After(5 * time.Second):
		return OracleResult{}, nil
	}
}

// slowBlacklist answers after delay and ignores its context.
type slowBlacklist struct {
	delay time.Duration
}

func (b slowBlacklist) IsBlacklisted(context.Context, string) (bool, error) {
	time.Sleep(b.delay)
	return true, nil
}

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Increment(context.Context, string, time.Duration) (int64, error) {
	return 0, errStoreDown
}
func (failingStore) Count(context.Context, string) (int64, error) { return 0, errStoreDown }
func (failingStore) Get(context.Context, string, interface{}) (bool, error) {
	return false, errStoreDown
}
func (failingStore) SetWithTTL(context.Context, string, interface{}, time.Duration) error {
	return errStoreDown
}

// memorySink collects fraud checks, optionally failing the first writes.
type memorySink struct {
	mu       sync.Mutex
	checks   []*models.FraudCheck
	failures int
	calls    int
	block    chan struct{}
}

func (s *memorySink) Create(ctx context.Context, check *models.FraudCheck) error {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return errStoreDown
	}
	s.checks = append(s.checks, check)
	return nil
}

func (s *memorySink) stored() []*models.FraudCheck {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.FraudCheck, len(s.checks))
	copy(out, s.checks)
	return out
}

func historyAt(now time.Time, amounts []int64, methods []string, spacing time.Duration) []models.Transaction {
	rows := make([]models.Transaction, len(amounts))
	for i, a := range amounts {
		method := "card"
		if i < len(methods) {
			method = methods[i]
		}
		rows[i] = models.Transaction{
			ActorID:       "actor",
			Amount:        a,
			PaymentMethod: method,
			CreatedAt:     now.Add(-time.Duration(i+1) * spacing),
		}
	}
	return rows
}
