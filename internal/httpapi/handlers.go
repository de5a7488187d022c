package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/blackfang-intel/fangauth"
	"github.com/blackfang-intel/fangauth/middleware"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// AuthHandler serves the /auth routes.
type AuthHandler struct {
	engine   *fangauth.Engine
	validate *validator.Validate
	log      zerolog.Logger

	// exposeResetToken returns reset tokens in the response body. Development only.
	exposeResetToken bool
}

func NewAuthHandler(engine *fangauth.Engine, log zerolog.Logger, exposeResetToken bool) *AuthHandler {
	return &AuthHandler{
		engine:           engine,
		validate:         validator.New(),
		log:              log,
		exposeResetToken: exposeResetToken,
	}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

func (r *loginRequest) normalize() { r.Email = fangauth.NormalizeEmail(r.Email) }

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,max=2048"`
}

type registerRequest struct {
	Name             string `json:"name" validate:"required,max=255"`
	Email            string `json:"email" validate:"required,email,max=254"`
	Password         string `json:"password" validate:"required,max=128"`
	CompanyName      string `json:"company_name" validate:"required,max=255"`
	Industry         string `json:"industry" validate:"max=100"`
	SubscriptionPlan string `json:"subscription_plan" validate:"omitempty,oneof=basic professional enterprise"`
}

func (r *registerRequest) normalize() {
	r.Email = fangauth.NormalizeEmail(r.Email)
	r.SubscriptionPlan = strings.ToLower(strings.TrimSpace(r.SubscriptionPlan))
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required,max=128"`
	NewPassword string `json:"new_password" validate:"required,max=128"`
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

func (r *resetRequest) normalize() { r.Email = fangauth.NormalizeEmail(r.Email) }

type resetConfirmRequest struct {
	Token       string `json:"token" validate:"required,max=2048"`
	NewPassword string `json:"new_password" validate:"required,max=128"`
}

// normalizer is implemented by requests whose fields are canonicalized before
// validation, so padded or mixed-case emails reach the engine.
type normalizer interface {
	normalize()
}

// decode reads and validates a JSON body, answering 400 on failure.
func (h *AuthHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErr(w, http.StatusBadRequest, codeInvalidRequest, "invalid body")
		return false
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := h.validate.Struct(dst); err != nil {
		writeErr(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return false
	}
	return true
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !h.decode(w, r, &body) {
		return
	}
	res, err := h.engine.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		h.logFailure(r, "login", err)
		writeEngineErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body refreshRequest
	if !h.decode(w, r, &body) {
		return
	}
	res, err := h.engine.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		h.logFailure(r, "refresh", err)
		writeEngineErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if !h.decode(w, r, &body) {
		return
	}
	summary, err := h.engine.Register(r.Context(), fangauth.RegisterRequest{
		Name:             body.Name,
		Email:            body.Email,
		Password:         body.Password,
		CompanyName:      body.CompanyName,
		Industry:         body.Industry,
		SubscriptionPlan: body.SubscriptionPlan,
	})
	if err != nil {
		h.logFailure(r, "register", err)
		writeEngineErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

// Logout always answers 200, even without a usable token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := middleware.BearerToken(r); ok {
		h.engine.Logout(r.Context(), token)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeErr(w, http.StatusUnauthorized, codeUnauthorized, "Not authenticated")
		return
	}
	summary, err := h.engine.TenantByID(r.Context(), claims.CompanyID)
	if err != nil {
		writeEngineErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var body changePasswordRequest
	if !h.decode(w, r, &body) {
		return
	}
	token, _ := middleware.BearerToken(r)
	err := h.engine.ChangePassword(r.Context(), token, body.OldPassword, body.NewPassword)
	if errors.Is(err, fangauth.ErrInvalidCredentials) {
		writeErr(w, http.StatusBadRequest, codeInvalidRequest, "Current password is incorrect")
		return
	}
	if err != nil {
		h.logFailure(r, "change_password", err)
		writeEngineErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

type validateResponse struct {
	Valid            bool       `json:"valid"`
	CompanyID        int64      `json:"company_id,omitempty"`
	Email            string     `json:"email,omitempty"`
	SubscriptionPlan string     `json:"subscription_plan,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	Error            string     `json:"error,omitempty"`
}

// ValidateToken always answers 200; the outcome is in the body.
func (h *AuthHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		writeJSON(w, http.StatusOK, validateResponse{Error: "missing bearer token"})
		return
	}
	res := h.engine.ValidateToken(r.Context(), token)
	if !res.Valid {
		msg := "invalid token"
		if errors.Is(res.Err, fangauth.ErrTokenExpired) {
			msg = "token expired"
		}
		writeJSON(w, http.StatusOK, validateResponse{Error: msg})
		return
	}
	out := validateResponse{
		Valid:            true,
		CompanyID:        res.Claims.CompanyID,
		Email:            res.Claims.Email,
		SubscriptionPlan: res.Claims.SubscriptionPlan,
	}
	if res.Claims.ExpiresAt != nil {
		exp := res.Claims.ExpiresAt.Time.UTC()
		out.ExpiresAt = &exp
	}
	writeJSON(w, http.StatusOK, out)
}

// RequestPasswordReset answers 202 whether or not the email exists.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var body resetRequest
	if !h.decode(w, r, &body) {
		return
	}
	token, err := h.engine.IssuePasswordReset(r.Context(), body.Email)
	if err != nil {
		h.logFailure(r, "password_reset_request", err)
		writeEngineErr(w, err)
		return
	}
	resp := map[string]string{"message": "If the account exists, a reset token has been issued"}
	if h.exposeResetToken && token != "" {
		resp["reset_token"] = token
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var body resetConfirmRequest
	if !h.decode(w, r, &body) {
		return
	}
	if err := h.engine.ConfirmPasswordReset(r.Context(), body.Token, body.NewPassword); err != nil {
		h.logFailure(r, "password_reset_confirm", err)
		writeEngineErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset"})
}

func (h *AuthHandler) IssueAPIKey(w http.ResponseWriter, r *http.Request) {
	token, _ := middleware.BearerToken(r)
	key, err := h.engine.IssueAPIKey(r.Context(), token, fangauth.PlanProfessional)
	if err != nil {
		writeEngineErr(w, err)
		return
	}
	info, err := fangauth.ParseAPIKey(key)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"api_key":    key,
		"company_id": info.CompanyID,
		"created_at": info.CreatedAt,
	})
}

// logFailure logs backend and internal failures. Client errors are left to
// the audit trail.
func (h *AuthHandler) logFailure(r *http.Request, op string, err error) {
	if !errors.Is(err, fangauth.ErrUnavailable) && !errors.Is(err, context.DeadlineExceeded) {
		return
	}
	h.log.Error().
		Err(err).
		Str("op", op).
		Str("request_id", chimid.GetReqID(r.Context())).
		Msg("auth backend failure")
}

// HealthHandler serves /health.
type HealthHandler struct {
	engine  *fangauth.Engine
	timeout time.Duration
}

func NewHealthHandler(engine *fangauth.Engine) *HealthHandler {
	return &HealthHandler{engine: engine, timeout: 3 * time.Second}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	now := time.Now().UTC()
	if err := h.engine.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "degraded",
			"timestamp": now,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": now,
	})
}
