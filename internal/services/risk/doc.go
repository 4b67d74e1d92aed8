/*
Package risk implements the transaction risk scoring engine.

A call to Service.ScoreTransaction validates the descriptor and then runs two
independent analyzers concurrently:

  - UserBehaviorAnalyzer scores the actor's recent history (new actor,
    frequency, amount outliers, payment method diversity).
  - TransactionRiskAnalyzer scores the descriptor itself (amount tiers,
    payment method, IP reputation, emulator devices, velocity).

The Aggregator weights both sub-scores into an overall score in [0, 100] and
maps it to a RiskLevel and Recommendation through the DecisionTable of the
active Policy. The policy can be loaded from YAML and reloaded at runtime.

Dependency failures never fail a request. The history store, the signal
store and the reputation oracle each degrade to a zero contribution and the
verdict carries a "risk signal unavailable" factor plus the Degraded signal
list. Only descriptor validation errors are returned to the caller.

Verdicts are handed to a FraudCheckRecorder, which persists them on
background workers from a bounded queue.
*/
package risk
