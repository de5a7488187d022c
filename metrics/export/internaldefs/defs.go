package internaldefs

import (
	"github.com/blackfang-intel/fangauth"
)

type CounterDef struct {
	ID   fangauth.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   fangauth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: fangauth.MetricLoginSuccess, Name: "fangauth_login_success_total", Help: "Successful login attempts."},
	{ID: fangauth.MetricLoginFailure, Name: "fangauth_login_failure_total", Help: "Failed login attempts."},
	{ID: fangauth.MetricLoginRateLimited, Name: "fangauth_login_rate_limited_total", Help: "Login attempts rejected by failed-login throttling."},
	{ID: fangauth.MetricRefreshSuccess, Name: "fangauth_refresh_success_total", Help: "Successful refresh operations."},
	{ID: fangauth.MetricRefreshFailure, Name: "fangauth_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: fangauth.MetricSessionCreated, Name: "fangauth_session_created_total", Help: "Created sessions."},
	{ID: fangauth.MetricSessionInvalidated, Name: "fangauth_session_invalidated_total", Help: "Revoke-all operations on a tenant's sessions."},
	{ID: fangauth.MetricLogout, Name: "fangauth_logout_total", Help: "Logout operations."},
	{ID: fangauth.MetricPasswordChangeSuccess, Name: "fangauth_password_change_success_total", Help: "Successful password changes."},
	{ID: fangauth.MetricPasswordChangeInvalidOld, Name: "fangauth_password_change_invalid_old_total", Help: "Password change attempts with a wrong current password."},
	{ID: fangauth.MetricPasswordChangeWeak, Name: "fangauth_password_change_weak_total", Help: "Password change attempts rejected by the strength check."},
	{ID: fangauth.MetricRegisterSuccess, Name: "fangauth_register_success_total", Help: "Successful tenant registrations."},
	{ID: fangauth.MetricRegisterDuplicate, Name: "fangauth_register_duplicate_total", Help: "Registrations rejected for a taken email."},
	{ID: fangauth.MetricPasswordResetRequest, Name: "fangauth_password_reset_request_total", Help: "Password reset requests."},
	{ID: fangauth.MetricPasswordResetConfirmSuccess, Name: "fangauth_password_reset_confirm_success_total", Help: "Successful password reset confirmations."},
	{ID: fangauth.MetricPasswordResetConfirmFailure, Name: "fangauth_password_reset_confirm_failure_total", Help: "Failed password reset confirmations."},
	{ID: fangauth.MetricValidateSuccess, Name: "fangauth_validate_success_total", Help: "Access tokens that validated."},
	{ID: fangauth.MetricValidateFailure, Name: "fangauth_validate_failure_total", Help: "Access tokens that failed validation."},
	{ID: fangauth.MetricBackendUnavailable, Name: "fangauth_backend_unavailable_total", Help: "Operations failed by a tenant store or session store outage."},
}

var HistogramDefs = []HistogramDef{
	{ID: fangauth.MetricValidateLatency, Name: "fangauth_validate_latency_seconds", Help: "Access token validation latency."},
	{ID: fangauth.MetricLoginLatency, Name: "fangauth_login_latency_seconds", Help: "Login latency including password verification."},
}

const AuditDroppedName = "fangauth_audit_dropped_total"
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// HistogramUpperBounds are the finite bucket bounds in seconds, matching the
// engine's bucket layout. The last engine bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
