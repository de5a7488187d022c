package fangauth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"github.com/blackfang-intel/fangauth/jwt"
)

// ErrPasswordResetDisabled is returned when PasswordReset.Enabled is false.
var ErrPasswordResetDisabled = errors.New("password reset disabled")

// IssuePasswordReset returns a signed reset token for email. For an unknown or
// inactive email it returns "" and a nil error so callers cannot probe accounts.
// Delivering the token is the caller's job.
func (e *Engine) IssuePasswordReset(ctx context.Context, email string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if !e.config.PasswordReset.Enabled {
		return "", ErrPasswordResetDisabled
	}
	e.metricInc(MetricPasswordResetRequest)

	email = NormalizeEmail(email)
	tenant, err := e.tenants.GetTenantByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			e.emitAudit(ctx, auditEventPasswordResetRequest, false, 0, ErrTenantNotFound, nil)
			return "", nil
		}
		e.metricInc(MetricBackendUnavailable)
		return "", unavailable(err)
	}
	if !tenant.IsActive {
		return "", nil
	}

	token, err := e.tokens.IssueReset(tenant.Email, credentialFingerprint(tenant.PasswordHash))
	if err != nil {
		return "", err
	}
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, tenant.ID, nil, nil)
	return token, nil
}

// ConfirmPasswordReset sets a new password from a reset token and revokes all
// sessions of the tenant. A token is spent once the password hash it was issued
// against has changed, whether by this call or by ChangePassword.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if !e.config.PasswordReset.Enabled {
		return ErrPasswordResetDisabled
	}

	claims, err := e.tokens.DecodeReset(token)
	if err != nil {
		return e.resetConfirmFailed(ctx, 0, resetTokenError(err))
	}

	if err := checkStrength(newPassword); err != nil {
		return e.resetConfirmFailed(ctx, 0, err)
	}

	tenant, err := e.tenants.GetTenantByEmail(ctx, NormalizeEmail(claims.Email))
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return e.resetConfirmFailed(ctx, 0, ErrInvalidToken)
		}
		e.metricInc(MetricBackendUnavailable)
		return e.resetConfirmFailed(ctx, 0, unavailable(err))
	}
	if !credentialMatches(claims.Credential, tenant.PasswordHash) {
		return e.resetConfirmFailed(ctx, tenant.ID, ErrInvalidToken)
	}

	if err := e.storeNewPassword(ctx, tenant.ID, newPassword); err != nil {
		return e.resetConfirmFailed(ctx, tenant.ID, err)
	}

	e.metricInc(MetricPasswordResetConfirmSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, tenant.ID, nil, nil)
	return nil
}

func (e *Engine) resetConfirmFailed(ctx context.Context, tenantID int64, err error) error {
	e.metricInc(MetricPasswordResetConfirmFailure)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, false, tenantID, err, nil)
	return err
}

// credentialFingerprint is a short digest of a stored hash. Every Hash call
// draws a fresh salt, so any password write changes it.
func credentialFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:12])
}

func credentialMatches(fingerprint, passwordHash string) bool {
	want := credentialFingerprint(passwordHash)
	return subtle.ConstantTimeCompare([]byte(fingerprint), []byte(want)) == 1
}

func resetTokenError(err error) error {
	if errors.Is(err, jwt.ErrExpired) {
		return errors.Join(ErrInvalidToken, ErrTokenExpired)
	}
	return ErrInvalidToken
}
