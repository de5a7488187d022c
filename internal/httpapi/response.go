package httpapi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/blackfang-intel/fangauth"
)

const (
	codeInvalidRequest = "invalid_request"
	codeUnauthorized   = "unauthorized"
	codeTokenExpired   = "token_expired"
	codeWeakPassword   = "weak_password"
	codeForbidden      = "forbidden"
	codeNotFound       = "not_found"
	codeConflict       = "conflict"
	codeRateLimited    = "rate_limited"
	codeUnavailable    = "service_unavailable"
	codeInternal       = "internal_error"
)

type errorBody struct {
	Detail string   `json:"detail"`
	Code   string   `json:"code"`
	Errors []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, detail string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, errorBody{Detail: detail, Code: code})
}

// writeEngineErr maps an Engine error to its HTTP response.
func writeEngineErr(w http.ResponseWriter, err error) {
	var weak *fangauth.WeakPasswordError
	switch {
	case errors.Is(err, fangauth.ErrUnavailable):
		writeErr(w, http.StatusServiceUnavailable, codeUnavailable, "Authentication service temporarily unavailable")
	case errors.As(err, &weak):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Detail: "Password does not meet security requirements",
			Code:   codeWeakPassword,
			Errors: weak.Errors,
		})
	case errors.Is(err, fangauth.ErrInvalidCredentials):
		writeErr(w, http.StatusUnauthorized, codeUnauthorized, "Invalid email or password")
	case errors.Is(err, fangauth.ErrTokenExpired):
		writeErr(w, http.StatusUnauthorized, codeTokenExpired, "Token has expired")
	case errors.Is(err, fangauth.ErrSessionExpired):
		writeErr(w, http.StatusUnauthorized, codeUnauthorized, "Session expired or invalid")
	case errors.Is(err, fangauth.ErrInvalidToken):
		writeErr(w, http.StatusUnauthorized, codeUnauthorized, "Could not validate credentials")
	case errors.Is(err, fangauth.ErrLoginRateLimited):
		var limited *fangauth.LoginRateLimitedError
		if errors.As(err, &limited) && limited.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(limited.RetryAfter.Seconds()))))
		}
		writeErr(w, http.StatusTooManyRequests, codeRateLimited, "Too many login attempts, try again later")
	case errors.Is(err, fangauth.ErrAccountExists):
		writeErr(w, http.StatusConflict, codeConflict, "Email already registered")
	case errors.Is(err, fangauth.ErrTenantNotFound):
		writeErr(w, http.StatusNotFound, codeNotFound, "Company not found")
	case errors.Is(err, fangauth.ErrInsufficientPlan):
		writeErr(w, http.StatusForbidden, codeForbidden, "Subscription upgrade required")
	case errors.Is(err, fangauth.ErrRegistrationDisabled), errors.Is(err, fangauth.ErrPasswordResetDisabled):
		writeErr(w, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, fangauth.ErrRegistrationInvalid), errors.Is(err, fangauth.ErrInvalidPlan):
		writeErr(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
	default:
		writeErr(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
