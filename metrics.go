package authcore

import internalmetrics "github.com/MrEthical07/authcore/internal/metrics"

// MetricID identifies a specific counter or histogram in the in-process
// metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricRegisterSuccess counts successful registrations.
	MetricRegisterSuccess = internalmetrics.MetricRegisterSuccess
	// MetricRegisterFailure counts registrations rejected for validation, policy or backend errors.
	MetricRegisterFailure = internalmetrics.MetricRegisterFailure
	// MetricRegisterDuplicate counts registrations rejected for a taken email.
	MetricRegisterDuplicate = internalmetrics.MetricRegisterDuplicate
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess = internalmetrics.MetricLoginSuccess
	// MetricLoginFailure counts failed logins.
	MetricLoginFailure = internalmetrics.MetricLoginFailure
	// MetricLoginRateLimited counts logins rejected by throttling.
	MetricLoginRateLimited = internalmetrics.MetricLoginRateLimited
	// MetricMFARequired counts logins that stopped for a missing MFA code.
	MetricMFARequired = internalmetrics.MetricMFARequired
	// MetricMFASetup counts MFA enrollments started.
	MetricMFASetup = internalmetrics.MetricMFASetup
	// MetricMFAEnabled counts MFA enrollments confirmed.
	MetricMFAEnabled = internalmetrics.MetricMFAEnabled
	// MetricMFADisabled counts MFA disable operations.
	MetricMFADisabled = internalmetrics.MetricMFADisabled
	// MetricMFAFailure counts wrong MFA codes at login or enrollment.
	MetricMFAFailure = internalmetrics.MetricMFAFailure
	// MetricMFARateLimited counts MFA confirmations rejected by throttling.
	MetricMFARateLimited = internalmetrics.MetricMFARateLimited
	// MetricMFAReplayAttempt counts reused TOTP steps rejected at login.
	MetricMFAReplayAttempt = internalmetrics.MetricMFAReplayAttempt
	// MetricPasswordResetRequest counts password reset requests.
	MetricPasswordResetRequest = internalmetrics.MetricPasswordResetRequest
	// MetricPasswordResetConfirmSuccess counts completed password resets.
	MetricPasswordResetConfirmSuccess = internalmetrics.MetricPasswordResetConfirmSuccess
	// MetricPasswordResetConfirmFailure counts rejected password reset tokens.
	MetricPasswordResetConfirmFailure = internalmetrics.MetricPasswordResetConfirmFailure
	// MetricPasswordRehash counts password hashes upgraded on login.
	MetricPasswordRehash = internalmetrics.MetricPasswordRehash
	// MetricTokenVerifySuccess counts accepted session tokens.
	MetricTokenVerifySuccess = internalmetrics.MetricTokenVerifySuccess
	// MetricTokenVerifyFailure counts rejected session tokens.
	MetricTokenVerifyFailure = internalmetrics.MetricTokenVerifyFailure
	// MetricTokenExpired counts expired session tokens.
	MetricTokenExpired = internalmetrics.MetricTokenExpired
	// MetricRateLimitHit counts throttle checks that denied a request.
	MetricRateLimitHit = internalmetrics.MetricRateLimitHit
	// MetricStoreConflictRetry counts optimistic update retries.
	MetricStoreConflictRetry = internalmetrics.MetricStoreConflictRetry
	// MetricStoreUnavailable counts credential store failures.
	MetricStoreUnavailable = internalmetrics.MetricStoreUnavailable
	// MetricVerifyLatency is the histogram of session token verification latency.
	MetricVerifyLatency = internalmetrics.MetricVerifyLatency
)

// Metrics holds atomic counters and optional latency histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a new [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
