package resilience

import "time"

// StatusCheckRetry returns the retry policy for provider status checks.
// attempts <= 1 means a failed check ends the poll loop immediately.
func StatusCheckRetry(attempts int) RetryConfig {
	if attempts <= 1 {
		return FailFast()
	}
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = attempts
	cfg.InitialBackoff = time.Second
	cfg.MaxBackoff = 5 * time.Second
	return cfg
}

// FromCircuitConfig converts config values to a CircuitBreakerConfig. Zero
// values keep the defaults.
func FromCircuitConfig(failureThreshold, resetTimeoutSecs int) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if resetTimeoutSecs > 0 {
		cfg.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}
	return cfg
}
