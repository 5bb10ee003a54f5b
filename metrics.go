package authcore

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	MetricRegisterSuccess MetricID = iota
	MetricRegisterDuplicate
	MetricLoginSuccess
	MetricLoginFailure
	MetricLoginLocked
	MetricLogout
	MetricSessionCreated
	MetricSessionRevoked
	MetricRateLimited
	MetricPasswordResetRequest
	MetricPasswordResetSuccess
	MetricPasswordResetFailure
	MetricEmailVerificationRequest
	MetricEmailVerified
	MetricAccountDeleted
	MetricInternalError
	metricIDCount
)

// MetricDef describes one counter for exporters: exposition name and help
// text.
type MetricDef struct {
	ID   MetricID
	Name string
	Help string
}

var metricDefs = []MetricDef{
	{MetricRegisterSuccess, "authcore_register_success_total", "Successful registrations."},
	{MetricRegisterDuplicate, "authcore_register_duplicate_total", "Registrations rejected for an existing email."},
	{MetricLoginSuccess, "authcore_login_success_total", "Successful logins."},
	{MetricLoginFailure, "authcore_login_failure_total", "Failed login attempts."},
	{MetricLoginLocked, "authcore_login_locked_total", "Logins rejected by account lockout."},
	{MetricLogout, "authcore_logout_total", "Logouts."},
	{MetricSessionCreated, "authcore_session_created_total", "Sessions issued."},
	{MetricSessionRevoked, "authcore_session_revoked_total", "Sessions revoked explicitly."},
	{MetricRateLimited, "authcore_rate_limited_total", "Requests rejected by rate limiting."},
	{MetricPasswordResetRequest, "authcore_password_reset_request_total", "Password reset requests."},
	{MetricPasswordResetSuccess, "authcore_password_reset_success_total", "Completed password resets."},
	{MetricPasswordResetFailure, "authcore_password_reset_failure_total", "Rejected password reset confirmations."},
	{MetricEmailVerificationRequest, "authcore_email_verification_request_total", "Email verification requests."},
	{MetricEmailVerified, "authcore_email_verified_total", "Completed email verifications."},
	{MetricAccountDeleted, "authcore_account_deleted_total", "Deleted accounts."},
	{MetricInternalError, "authcore_internal_error_total", "Requests that hit the internal-error boundary."},
}

// MetricDefs returns the counter catalog in export order.
func MetricDefs() []MetricDef {
	out := make([]MetricDef, len(metricDefs))
	copy(out, metricDefs)
	return out
}

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the engine's atomic counters. A disabled Metrics is a
// no-op on every method, so call sites never branch.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// NewMetrics creates a Metrics instance per cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Snapshot deep-copies the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	if m == nil || !m.enabled {
		return s
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
