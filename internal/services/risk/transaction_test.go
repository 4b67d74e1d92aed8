package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransactionAnalyzer(store SignalStore, oracle ReputationOracle, blacklist BlacklistChecker) *TransactionRiskAnalyzer {
	resolver := NewIPReputationResolver(store, oracle, blacklist, nil, Config{}, nil)
	return NewTransactionRiskAnalyzer(resolver, NewVelocityTracker(store, nil), nil, Config{})
}

func descriptor(actor string, amount int64, ip string) TransactionDescriptor {
	return TransactionDescriptor{
		ActorID:       actor,
		Amount:        amount,
		PaymentMethod: PaymentMethodCard,
		IPAddress:     ip,
	}
}

func labels(factors []RiskFactor) []string {
	out := make([]string, 0, len(factors))
	for _, f := range factors {
		out = append(out, f.Label)
	}
	return out
}

func TestTransactionRiskAnalyzer_Rules(t *testing.T) {
	tests := []struct {
		name      string
		desc      TransactionDescriptor
		oracle    staticOracle
		blacklist staticBlacklist
		wantScore int
		wantLabel []string
	}{
		{
			name:      "benign",
			desc:      descriptor("a", 50_000, "203.0.113.1"),
			wantScore: 0,
			wantLabel: []string{},
		},
		{
			name:      "at T1 is not high",
			desc:      descriptor("a", 500_000, "203.0.113.1"),
			wantScore: 0,
			wantLabel: []string{},
		},
		{
			name:      "above T1",
			desc:      descriptor("a", 500_001, "203.0.113.1"),
			wantScore: PointsHighAmount,
			wantLabel: []string{LabelHighAmount},
		},
		{
			name:      "above T2 stacks with T1",
			desc:      descriptor("a", 1_000_001, "203.0.113.1"),
			wantScore: PointsHighAmount + PointsVeryHighAmount,
			wantLabel: []string{LabelHighAmount, LabelVeryHighAmount},
		},
		{
			name: "bank transfer",
			desc: TransactionDescriptor{
				ActorID: "a", Amount: 100, PaymentMethod: PaymentMethodBankTransfer, IPAddress: "203.0.113.1",
			},
			wantScore: PointsHighRiskMethod,
			wantLabel: []string{LabelHighRiskMethod},
		},
		{
			name:      "tor exit",
			desc:      descriptor("a", 100, "198.51.100.7"),
			oracle:    staticOracle{"198.51.100.7": {IsTor: true}},
			wantScore: PointsAnonymizedIP,
			wantLabel: []string{LabelAnonymizedIP},
		},
		{
			name:      "blacklisted",
			desc:      descriptor("a", 100, "198.51.100.8"),
			blacklist: staticBlacklist{"198.51.100.8": true},
			wantScore: PointsBlacklistedIP,
			wantLabel: []string{LabelBlacklistedIP},
		},
		{
			name: "emulator",
			desc: TransactionDescriptor{
				ActorID: "a", Amount: 100, PaymentMethod: PaymentMethodCard, IPAddress: "203.0.113.1",
				DeviceFingerprint: "Android SDK built for x86; Genymotion",
			},
			wantScore: PointsEmulator,
			wantLabel: []string{LabelEmulator},
		},
		{
			name:      "vpn and blacklist with very high amount clamps",
			desc:      descriptor("a", 1_200_000, "198.51.100.9"),
			oracle:    staticOracle{"198.51.100.9": {IsVPN: true}},
			blacklist: staticBlacklist{"198.51.100.9": true},
			wantScore: 100,
			wantLabel: []string{LabelHighAmount, LabelVeryHighAmount, LabelAnonymizedIP, LabelBlacklistedIP},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestTransactionAnalyzer(NewMemorySignalStore(), tt.oracle, tt.blacklist)
			res := a.Analyze(context.Background(), tt.desc)
			assert.Equal(t, tt.wantScore, res.Score)
			assert.Equal(t, tt.wantLabel, labels(res.Factors))
			assert.Empty(t, res.Degraded)
		})
	}
}

func TestTransactionRiskAnalyzer_AdvancesVelocity(t *testing.T) {
	store := NewMemorySignalStore()
	a := newTestTransactionAnalyzer(store, staticOracle{}, nil)
	ctx := context.Background()

	res := a.Analyze(ctx, descriptor("actor-v", 100, "203.0.113.20"))
	assert.Equal(t, VelocityCounts{Hour: 1, Day: 1}, res.ActorVelocity)
	assert.Equal(t, int64(1), res.IPVelocity.Hour)

	n, err := a.velocity.WindowCount(ctx, SubjectActor, "actor-v", WindowDay)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTransactionRiskAnalyzer_DailyVelocity(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemorySignalStore().WithClock(func() time.Time { return now })
	a := newTestTransactionAnalyzer(store, staticOracle{}, nil)
	ctx := context.Background()

	// One transaction every 61 minutes: the hourly windows roll over each
	// time, so only the 24h rule changes between calls 10 and 11.
	var tenth, eleventh TransactionResult
	for i := 1; i <= 11; i++ {
		res := a.Analyze(ctx, descriptor("actor-d", 100, "203.0.113.70"))
		switch i {
		case 10:
			tenth = res
		case 11:
			eleventh = res
		}
		now = now.Add(61 * time.Minute)
	}

	assert.Equal(t, int64(10), tenth.ActorVelocity.Day)
	assert.Equal(t, int64(11), eleventh.ActorVelocity.Day)
	assert.NotContains(t, labels(tenth.Factors), LabelActorDaily)
	assert.Contains(t, labels(eleventh.Factors), LabelActorDaily)
	assert.Equal(t, tenth.Score+PointsActorDaily, eleventh.Score)
}

func TestTransactionRiskAnalyzer_HourlyVelocity(t *testing.T) {
	a := newTestTransactionAnalyzer(NewMemorySignalStore(), staticOracle{}, nil)
	ctx := context.Background()

	var scores []int
	for i := 0; i < 6; i++ {
		res := a.Analyze(ctx, descriptor("actor-h", 100, "203.0.113.50"))
		scores = append(scores, res.Score)
	}
	// 4th call: actor hourly > 3. 6th call: IP hourly > 5.
	assert.Equal(t, []int{0, 0, 0, PointsActorHourly, PointsActorHourly, PointsActorHourly + PointsIPHourly}, scores)
}

func TestTransactionRiskAnalyzer_AmountMonotonic(t *testing.T) {
	amounts := []int64{1, 499_999, 500_000, 500_001, 999_999, 1_000_000, 1_000_001, 5_000_000}
	prev := -1
	for _, amount := range amounts {
		a := newTestTransactionAnalyzer(NewMemorySignalStore(), staticOracle{}, nil)
		res := a.Analyze(context.Background(), descriptor("actor-m", amount, "203.0.113.60"))
		assert.GreaterOrEqual(t, res.Score, prev, "amount %d", amount)
		prev = res.Score
	}
}

func TestTransactionRiskAnalyzer_BlacklistPenaltyIsFixed(t *testing.T) {
	base := []TransactionDescriptor{
		descriptor("b", 100, "192.0.2.1"),
		descriptor("b", 600_000, "192.0.2.1"),
		{ActorID: "b", Amount: 100, PaymentMethod: PaymentMethodBankTransfer, IPAddress: "192.0.2.1", DeviceFingerprint: "emulator"},
	}
	for _, desc := range base {
		clean := newTestTransactionAnalyzer(NewMemorySignalStore(), staticOracle{}, nil).Analyze(context.Background(), desc)
		listed := newTestTransactionAnalyzer(NewMemorySignalStore(), staticOracle{}, staticBlacklist{"192.0.2.1": true}).Analyze(context.Background(), desc)
		assert.Equal(t, min(clean.Score+PointsBlacklistedIP, MaxScore), listed.Score)
	}
}

func TestTransactionRiskAnalyzer_StoreDown(t *testing.T) {
	a := newTestTransactionAnalyzer(failingStore{}, staticOracle{"192.0.2.5": {IsVPN: true}}, nil)
	res := a.Analyze(context.Background(), descriptor("s", 600_000, "192.0.2.5"))

	assert.Equal(t, PointsHighAmount+PointsAnonymizedIP, res.Score)
	assert.Equal(t, []Signal{SignalVelocity}, res.Degraded)
	assert.Contains(t, labels(res.Factors), DegradationLabelPrefix+"velocity counters")
}

func TestTransactionRiskAnalyzer_PolicyOverride(t *testing.T) {
	store := NewMemorySignalStore()
	resolver := NewIPReputationResolver(store, staticOracle{}, nil, nil, Config{}, nil)
	p := DefaultPolicy()
	p.HighRiskMethods = []PaymentMethod{PaymentMethodCrypto}
	holder := NewPolicyHolder(&p)
	a := NewTransactionRiskAnalyzer(resolver, NewVelocityTracker(store, nil), holder, Config{})

	desc := descriptor("p", 100, "192.0.2.9")
	desc.PaymentMethod = PaymentMethodCrypto
	assert.Equal(t, PointsHighRiskMethod, a.Analyze(context.Background(), desc).Score)

	desc.ActorID = "p2"
	desc.PaymentMethod = PaymentMethodBankTransfer
	assert.Zero(t, a.Analyze(context.Background(), desc).Score)
}
