package fangauth

import "github.com/blackfang-intel/fangauth/internal/security"

// SecurityReport is a secret-free summary of the engine's security settings.
type SecurityReport = security.Report

// SecurityReport describes the built engine. The signing secret itself is
// never included, only its length.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	c := e.config
	return security.BuildReport(security.ReportInput{
		SigningAlgorithm:    "HS256",
		SecretBytes:         len(c.JWT.Secret),
		AccessTTL:           c.JWT.AccessTTL,
		RefreshTTL:          c.JWT.RefreshTTL,
		PBKDF2Iterations:    c.Password.Iterations,
		SaltBytes:           c.Password.SaltBytes,
		MaxConcurrentHashes: cap(e.hashSlots),
		SessionBackend:      e.backend,
		LimiterConfigured:   e.limiter != nil,
		EnableIPThrottle:    c.Security.EnableIPThrottle,
		MaxLoginAttempts:    c.Security.MaxLoginAttempts,
		LoginWindow:         c.Security.LoginWindow,
		RegistrationEnabled: c.Account.Enabled,
		PasswordReset:       c.PasswordReset.Enabled,
		DemoEnabled:         c.Demo.Enabled,
		AuditEnabled:        c.Audit.Enabled,
	})
}
