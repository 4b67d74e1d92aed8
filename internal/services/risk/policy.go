package risk

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// LevelRule maps scores at or above MinScore to a level and recommendation.
type LevelRule struct {
	Level          RiskLevel      `yaml:"level"`
	MinScore       int            `yaml:"min_score"`
	Recommendation Recommendation `yaml:"recommendation"`
}

// DecisionTable turns the two analyzer scores into a verdict.
type DecisionTable struct {
	Levels            []LevelRule `yaml:"levels"`
	BehaviorWeight    int         `yaml:"behavior_weight"`    // percent
	TransactionWeight int         `yaml:"transaction_weight"` // percent
}

// Policy is the tunable part of the engine. Swapped atomically on reload.
type Policy struct {
	Decision           DecisionTable   `yaml:"decision"`
	HighRiskMethods    []PaymentMethod `yaml:"high_risk_methods"`
	EmulatorSignatures []string        `yaml:"emulator_signatures"`
}

// DefaultPolicy returns the built-in thresholds.
func DefaultPolicy() Policy {
	return Policy{
		Decision: DecisionTable{
			Levels: []LevelRule{
				{Level: RiskLevelCritical, MinScore: 80, Recommendation: RecommendationBlock},
				{Level: RiskLevelHigh, MinScore: 60, Recommendation: RecommendationReview},
				{Level: RiskLevelMedium, MinScore: 40, Recommendation: RecommendationVerify},
				{Level: RiskLevelLow, MinScore: 0, Recommendation: RecommendationApprove},
			},
			BehaviorWeight:    DefaultBehaviorWeight,
			TransactionWeight: DefaultTransactionWeight,
		},
		HighRiskMethods: []PaymentMethod{PaymentMethodBankTransfer},
		EmulatorSignatures: []string{
			"emulator", "simulator", "genymotion", "bluestacks", "sdk_gphone",
			"generic_x86", "goldfish", "ranchu", "nox", "vbox86",
		},
	}
}

// Validate checks the table is total over [0, 100] and the weights sum to 100.
// Levels are sorted by descending MinScore as a side effect.
func (p *Policy) Validate() error {
	d := &p.Decision
	if len(d.Levels) == 0 {
		return fmt.Errorf("%w: no risk levels", ErrInvalidPolicy)
	}
	if d.BehaviorWeight < 0 || d.TransactionWeight < 0 || d.BehaviorWeight+d.TransactionWeight != 100 {
		return fmt.Errorf("%w: weights %d+%d must sum to 100", ErrInvalidPolicy, d.BehaviorWeight, d.TransactionWeight)
	}

	seen := make(map[RiskLevel]bool, len(d.Levels))
	hasFloor := false
	for _, rule := range d.Levels {
		if !rule.Level.Valid() {
			return fmt.Errorf("%w: unknown level %q", ErrInvalidPolicy, rule.Level)
		}
		if seen[rule.Level] {
			return fmt.Errorf("%w: duplicate level %q", ErrInvalidPolicy, rule.Level)
		}
		seen[rule.Level] = true
		if !rule.Recommendation.Valid() {
			return fmt.Errorf("%w: unknown recommendation %q", ErrInvalidPolicy, rule.Recommendation)
		}
		if rule.MinScore < MinScore || rule.MinScore > MaxScore {
			return fmt.Errorf("%w: min_score %d out of range", ErrInvalidPolicy, rule.MinScore)
		}
		if rule.MinScore == MinScore {
			hasFloor = true
		}
	}
	if !hasFloor {
		return fmt.Errorf("%w: no level starts at %d", ErrInvalidPolicy, MinScore)
	}

	sort.SliceStable(d.Levels, func(i, j int) bool {
		return d.Levels[i].MinScore > d.Levels[j].MinScore
	})
	for _, m := range p.HighRiskMethods {
		if !m.Valid() {
			return fmt.Errorf("%w: unknown payment method %q", ErrInvalidPolicy, m)
		}
	}
	return nil
}

// Classify returns the first rule whose lower bound score reaches.
func (d DecisionTable) Classify(score int) (RiskLevel, Recommendation) {
	for _, rule := range d.Levels {
		if score >= rule.MinScore {
			return rule.Level, rule.Recommendation
		}
	}
	// Unreachable for a validated table.
	return RiskLevelLow, RecommendationApprove
}

// IsHighRiskMethod reports whether m earns the payment method factor.
func (p *Policy) IsHighRiskMethod(m PaymentMethod) bool {
	for _, hr := range p.HighRiskMethods {
		if hr == m {
			return true
		}
	}
	return false
}

// IsEmulator matches the fingerprint against known emulator markers.
func (p *Policy) IsEmulator(fingerprint string) bool {
	if fingerprint == "" {
		return false
	}
	fp := strings.ToLower(fingerprint)
	for _, sig := range p.EmulatorSignatures {
		if sig != "" && strings.Contains(fp, strings.ToLower(sig)) {
			return true
		}
	}
	return false
}

// ParsePolicy decodes YAML on top of the defaults. Omitted sections keep
// their default values.
func ParsePolicy(data []byte) (*Policy, error) {
	p := DefaultPolicy()
	var raw Policy
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	if len(raw.Decision.Levels) > 0 {
		p.Decision.Levels = raw.Decision.Levels
	}
	if raw.Decision.BehaviorWeight != 0 || raw.Decision.TransactionWeight != 0 {
		p.Decision.BehaviorWeight = raw.Decision.BehaviorWeight
		p.Decision.TransactionWeight = raw.Decision.TransactionWeight
	}
	if raw.HighRiskMethods != nil {
		p.HighRiskMethods = raw.HighRiskMethods
	}
	if raw.EmulatorSignatures != nil {
		p.EmulatorSignatures = raw.EmulatorSignatures
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadPolicyFile reads and validates a policy file.
func LoadPolicyFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy %s: %w", path, err)
	}
	return ParsePolicy(data)
}

// PolicyHolder gives lock-free access to the current policy.
type PolicyHolder struct {
	current atomic.Pointer[Policy]
}

// NewPolicyHolder starts with p, or the defaults when p is nil.
func NewPolicyHolder(p *Policy) *PolicyHolder {
	h := &PolicyHolder{}
	if p == nil {
		def := DefaultPolicy()
		p = &def
	}
	h.current.Store(p)
	return h
}

// Load returns the active policy. Callers must not mutate it.
func (h *PolicyHolder) Load() *Policy {
	return h.current.Load()
}

// Swap validates p and makes it active.
func (h *PolicyHolder) Swap(p *Policy) error {
	if p == nil {
		return fmt.Errorf("%w: nil policy", ErrInvalidPolicy)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	h.current.Store(p)
	return nil
}
