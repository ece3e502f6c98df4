package internaldefs

import (
	"math"

	"github.com/MrEthical07/authcore"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported engine counter in output order.
var CounterDefs = []CounterDef{
	{ID: authcore.MetricRegisterSuccess, Name: "authcore_register_success_total", Help: "Successful registrations."},
	{ID: authcore.MetricRegisterFailure, Name: "authcore_register_failure_total", Help: "Registrations rejected for validation, policy or backend errors."},
	{ID: authcore.MetricRegisterDuplicate, Name: "authcore_register_duplicate_total", Help: "Registrations rejected for a taken email."},
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful login attempts."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed login attempts."},
	{ID: authcore.MetricLoginRateLimited, Name: "authcore_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: authcore.MetricMFARequired, Name: "authcore_mfa_required_total", Help: "Logins stopped for a missing MFA code."},
	{ID: authcore.MetricMFASetup, Name: "authcore_mfa_setup_total", Help: "MFA enrollments started."},
	{ID: authcore.MetricMFAEnabled, Name: "authcore_mfa_enabled_total", Help: "MFA enrollments confirmed."},
	{ID: authcore.MetricMFADisabled, Name: "authcore_mfa_disabled_total", Help: "MFA disable operations."},
	{ID: authcore.MetricMFAFailure, Name: "authcore_mfa_failure_total", Help: "Rejected MFA codes."},
	{ID: authcore.MetricMFARateLimited, Name: "authcore_mfa_rate_limited_total", Help: "Rate-limited MFA confirmations."},
	{ID: authcore.MetricMFAReplayAttempt, Name: "authcore_mfa_replay_attempt_total", Help: "Detected MFA replay attempts."},
	{ID: authcore.MetricPasswordResetRequest, Name: "authcore_password_reset_request_total", Help: "Password reset requests."},
	{ID: authcore.MetricPasswordResetConfirmSuccess, Name: "authcore_password_reset_confirm_success_total", Help: "Successful password reset confirmations."},
	{ID: authcore.MetricPasswordResetConfirmFailure, Name: "authcore_password_reset_confirm_failure_total", Help: "Failed password reset confirmations."},
	{ID: authcore.MetricPasswordRehash, Name: "authcore_password_rehash_total", Help: "Password hashes upgraded on login."},
	{ID: authcore.MetricTokenVerifySuccess, Name: "authcore_token_verify_success_total", Help: "Accepted session tokens."},
	{ID: authcore.MetricTokenVerifyFailure, Name: "authcore_token_verify_failure_total", Help: "Rejected session tokens."},
	{ID: authcore.MetricTokenExpired, Name: "authcore_token_expired_total", Help: "Expired session tokens."},
	{ID: authcore.MetricRateLimitHit, Name: "authcore_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: authcore.MetricStoreConflictRetry, Name: "authcore_store_conflict_retry_total", Help: "Optimistic update retries after a version conflict."},
	{ID: authcore.MetricStoreUnavailable, Name: "authcore_store_unavailable_total", Help: "Credential store failures."},
}

// HistogramDefs lists the exported engine histograms.
var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricVerifyLatency, Name: "authcore_verify_latency_seconds", Help: "Session token verification latency histogram."},
}

// AuditDroppedName and AuditDroppedHelp describe the dispatcher drop counter,
// which is read from the engine rather than the snapshot.
const (
	AuditDroppedName = "authcore_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// Bound is one histogram bucket upper bound. The last bound is +Inf.
type Bound struct {
	Seconds float64
	Label   string
	Suffix  string
}

// Bounds mirrors the engine's latency buckets.
var Bounds = [8]Bound{
	{Seconds: 0.005, Label: "0.005", Suffix: "0_005"},
	{Seconds: 0.01, Label: "0.01", Suffix: "0_01"},
	{Seconds: 0.025, Label: "0.025", Suffix: "0_025"},
	{Seconds: 0.05, Label: "0.05", Suffix: "0_05"},
	{Seconds: 0.1, Label: "0.1", Suffix: "0_1"},
	{Seconds: 0.25, Label: "0.25", Suffix: "0_25"},
	{Seconds: 0.5, Label: "0.5", Suffix: "0_5"},
	{Seconds: math.Inf(1), Label: "+Inf", Suffix: "inf"},
}

// HistogramPoint is one histogram read out of a snapshot.
type HistogramPoint struct {
	Cumulative [8]uint64
	Count      uint64
	SumSeconds float64
}

// Histogram extracts the histogram for id. ok is false when the snapshot
// carries no data for it, e.g. with latency collection off.
func Histogram(snapshot authcore.MetricsSnapshot, id authcore.MetricID) (HistogramPoint, bool) {
	raw, ok := snapshot.Histograms[id]
	if !ok {
		return HistogramPoint{}, false
	}
	cumulative := CumulativeBuckets(NormalizeBuckets(raw))
	return HistogramPoint{
		Cumulative: cumulative,
		Count:      cumulative[len(cumulative)-1],
		SumSeconds: snapshot.HistogramSums[id].Seconds(),
	}, true
}

// Empty reports whether nothing has been collected: metrics disabled and no
// audit drops.
func Empty(snapshot authcore.MetricsSnapshot, dropped uint64) bool {
	return len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling
// missing entries.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
