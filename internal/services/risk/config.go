package risk

import (
	"strings"

	"orus-risk/internal/config"
)

// DefaultConfig returns the built-in engine settings.
func DefaultConfig() Config {
	return Config{
		AmountThresholdT1: DefaultAmountThresholdT1,
		AmountThresholdT2: DefaultAmountThresholdT2,
		HistoryLimit:      DefaultHistoryLimit,
		ReputationTTL:     DefaultReputationTTL,
		OracleTimeout:     DefaultOracleTimeout,
		BlacklistTimeout:  DefaultBlacklistTimeout,
		Recorder: RecorderConfig{
			QueueSize:    DefaultRecorderQueueSize,
			Workers:      DefaultRecorderWorkers,
			Policy:       QueuePolicyDropOldest,
			MaxAttempts:  DefaultRecorderAttempts,
			RetryDelay:   DefaultRecorderRetryDelay,
			WriteTimeout: DefaultRecorderWriteTimeout,
		},
	}
}

// ConfigFromEnv reads the RISK_* variables on top of DefaultConfig.
func ConfigFromEnv() Config {
	c := DefaultConfig()
	c.AmountThresholdT1 = config.GetInt64Env("RISK_AMOUNT_T1", c.AmountThresholdT1)
	c.AmountThresholdT2 = config.GetInt64Env("RISK_AMOUNT_T2", c.AmountThresholdT2)
	c.HistoryLimit = config.GetIntEnv("RISK_HISTORY_LIMIT", c.HistoryLimit)
	c.ReputationTTL = config.GetDurationEnv("RISK_REPUTATION_TTL", c.ReputationTTL)
	c.OracleTimeout = config.GetDurationEnv("RISK_ORACLE_TIMEOUT", c.OracleTimeout)
	c.BlacklistTimeout = config.GetDurationEnv("RISK_BLACKLIST_TIMEOUT", c.BlacklistTimeout)

	c.Recorder.QueueSize = config.GetIntEnv("RISK_RECORDER_QUEUE", c.Recorder.QueueSize)
	c.Recorder.Workers = config.GetIntEnv("RISK_RECORDER_WORKERS", c.Recorder.Workers)
	c.Recorder.MaxAttempts = config.GetIntEnv("RISK_RECORDER_RETRIES", c.Recorder.MaxAttempts)
	c.Recorder.RetryDelay = config.GetDurationEnv("RISK_RECORDER_RETRY_DELAY", c.Recorder.RetryDelay)
	c.Recorder.WriteTimeout = config.GetDurationEnv("RISK_RECORDER_WRITE_TIMEOUT", c.Recorder.WriteTimeout)
	policy := QueuePolicy(strings.ToLower(config.GetEnv("RISK_RECORDER_POLICY", string(c.Recorder.Policy))))
	if policy == QueuePolicyDropOldest || policy == QueuePolicyBlock {
		c.Recorder.Policy = policy
	}
	if key := config.GetEnv("RISK_DEVICE_HASH_KEY", ""); key != "" {
		c.Recorder.DeviceHashKey = []byte(key)
	}

	if c.AmountThresholdT2 < c.AmountThresholdT1 {
		c.AmountThresholdT2 = c.AmountThresholdT1
	}
	return c
}
