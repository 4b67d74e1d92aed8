package risk

import (
	"context"
	"errors"
	"time"

	"orus-risk/internal/circuitbreaker"
	"orus-risk/internal/logging"

	"golang.org/x/sync/singleflight"
)

// IPReputationResolver combines the cached oracle classification with a
// fresh blacklist check. Oracle results are cached for the reputation TTL;
// the blacklist is consulted on every call so admin additions apply at once.
type IPReputationResolver struct {
	store     SignalStore
	oracle    ReputationOracle
	blacklist BlacklistChecker
	breaker   *circuitbreaker.Breaker
	metrics   MetricsCollector
	ttl       time.Duration
	timeout   time.Duration
	// blacklistTimeout bounds the per-request blacklist check.
	blacklistTimeout time.Duration
	now              func() time.Time
	lookups          singleflight.Group
}

// NewIPReputationResolver wires the resolver. breaker may be nil.
func NewIPReputationResolver(store SignalStore, oracle ReputationOracle, blacklist BlacklistChecker, breaker *circuitbreaker.Breaker, config Config, metrics MetricsCollector) *IPReputationResolver {
	if store == nil {
		panic("signal store is required")
	}
	if oracle == nil {
		panic("reputation oracle is required")
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	ttl := config.ReputationTTL
	if ttl <= 0 {
		ttl = DefaultReputationTTL
	}
	timeout := config.OracleTimeout
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}
	blacklistTimeout := config.BlacklistTimeout
	if blacklistTimeout <= 0 {
		blacklistTimeout = DefaultBlacklistTimeout
	}
	if breaker != nil {
		breaker.OnTransition(func(tr circuitbreaker.Transition) {
			metrics.RecordBreakerTransition(tr.From.String(), tr.To.String(), breaker.OpenCount())
		})
	}
	return &IPReputationResolver{
		store:            store,
		oracle:           oracle,
		blacklist:        blacklist,
		breaker:          breaker,
		metrics:          metrics,
		ttl:              ttl,
		timeout:          timeout,
		blacklistTimeout: blacklistTimeout,
		now:              time.Now,
	}
}

// ReputationKey is the cache key of an address's oracle result.
func ReputationKey(ip string) string {
	return ReputationKeyPrefix + ip
}

// Resolve never fails. Signals it could not check are returned and their
// flags are left false.
func (r *IPReputationResolver) Resolve(ctx context.Context, ip string) (IPReputation, []Signal) {
	rep := IPReputation{IP: ip, CheckedAt: r.now()}
	var degraded []Signal

	res, err := r.classify(ctx, ip)
	if err != nil {
		logging.L(ctx).Warn("ip reputation unavailable", "ip", ip, "error", err)
		degraded = append(degraded, SignalIPReputation)
	} else {
		rep.IsVPN = res.IsVPN
		rep.IsTor = res.IsTor
		rep.CountryCode = res.CountryCode
	}

	if r.blacklist != nil {
		hit, err := r.checkBlacklist(ctx, ip)
		if err != nil {
			logging.L(ctx).Warn("ip blacklist unavailable", "ip", ip, "error", err)
			degraded = append(degraded, SignalIPBlacklist)
		}
		rep.IsBlacklisted = hit
	}

	return rep, degraded
}

func (r *IPReputationResolver) classify(ctx context.Context, ip string) (OracleResult, error) {
	key := ReputationKey(ip)

	var cached OracleResult
	found, err := r.store.Get(ctx, key, &cached)
	if err != nil {
		r.metrics.RecordStoreError("reputation_get")
		logging.L(ctx).Warn("reputation cache read failed", "key", key, "error", err)
	}
	if found {
		r.metrics.RecordCacheHit(key)
		return cached, nil
	}
	r.metrics.RecordCacheMiss(key)

	v, err, _ := r.lookups.Do(ip, func() (interface{}, error) {
		res, err := r.lookup(ctx, ip)
		if err != nil {
			return OracleResult{}, err
		}
		if err := r.store.SetWithTTL(context.WithoutCancel(ctx), key, res, r.ttl); err != nil {
			r.metrics.RecordStoreError("reputation_set")
			logging.L(ctx).Warn("reputation cache write failed", "key", key, "error", err)
		}
		return res, nil
	})
	if err != nil {
		return OracleResult{}, err
	}
	return v.(OracleResult), nil
}

// lookup calls the oracle with a bounded timeout that does not depend on the
// oracle honouring its context.
func (r *IPReputationResolver) lookup(ctx context.Context, ip string) (OracleResult, error) {
	if r.breaker != nil && !r.breaker.Allow(oracleBreakerKey) {
		r.metrics.RecordOracleLookup("circuit_open", 0)
		return OracleResult{}, ErrOracleUnavailable
	}

	// Shared by every caller waiting on this IP, so one abandoned request
	// must not cancel the lookup for the others.
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	type outcome struct {
		res OracleResult
		err error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		res, err := r.oracle.Lookup(lctx, ip)
		done <- outcome{res: res, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-lctx.Done():
		out.err = ErrOracleTimeout
	}
	if errors.Is(out.err, context.DeadlineExceeded) {
		out.err = ErrOracleTimeout
	}

	elapsed := time.Since(start)
	switch {
	case out.err == nil:
		r.metrics.RecordOracleLookup("ok", elapsed)
		if r.breaker != nil {
			r.breaker.RecordSuccess(oracleBreakerKey)
		}
	case errors.Is(out.err, ErrOracleTimeout):
		r.metrics.RecordOracleLookup("timeout", elapsed)
		if r.breaker != nil {
			r.breaker.RecordFailure(oracleBreakerKey)
		}
	default:
		r.metrics.RecordOracleLookup("error", elapsed)
		if r.breaker != nil {
			r.breaker.RecordFailure(oracleBreakerKey)
		}
	}
	return out.res, out.err
}

// checkBlacklist bounds the blacklist call the same way lookup bounds the
// oracle: a checker that ignores its context still cannot stall scoring.
func (r *IPReputationResolver) checkBlacklist(ctx context.Context, ip string) (bool, error) {
	bctx, cancel := context.WithTimeout(ctx, r.blacklistTimeout)
	defer cancel()

	type outcome struct {
		hit bool
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		hit, err := r.blacklist.IsBlacklisted(bctx, ip)
		done <- outcome{hit: hit, err: err}
	}()

	select {
	case out := <-done:
		if errors.Is(out.err, context.DeadlineExceeded) {
			return false, ErrBlacklistTimeout
		}
		return out.hit, out.err
	case <-bctx.Done():
		return false, ErrBlacklistTimeout
	}
}
