package security

import "time"

// Report summarizes the security posture of a built engine. It holds no
// secrets and is safe to log.
type Report struct {
	SigningAlgorithm      string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	PBKDF2Iterations      int
	SaltBytes             int
	MaxConcurrentHashes   int
	SessionBackend        string
	RefreshRotation       bool
	LoginThrottleActive   bool
	IPThrottleActive      bool
	MaxLoginAttempts      int
	LoginWindow           time.Duration
	RegistrationOpen      bool
	PasswordResetActive   bool
	DemoAccountEnabled    bool
	AuditEnabled          bool
	WeakIterationWarning  bool
	ShortSecretWarning    bool
}

type ReportInput struct {
	SigningAlgorithm    string
	SecretBytes         int
	AccessTTL           time.Duration
	RefreshTTL          time.Duration
	PBKDF2Iterations    int
	SaltBytes           int
	MaxConcurrentHashes int
	SessionBackend      string
	LimiterConfigured   bool
	EnableIPThrottle    bool
	MaxLoginAttempts    int
	LoginWindow         time.Duration
	RegistrationEnabled bool
	PasswordReset       bool
	DemoEnabled         bool
	AuditEnabled        bool
}

const (
	recommendedIterations  = 100_000
	recommendedSecretBytes = 32
)

func BuildReport(in ReportInput) Report {
	throttle := in.LimiterConfigured &&
		in.MaxLoginAttempts > 0 &&
		in.LoginWindow > 0

	return Report{
		SigningAlgorithm:     in.SigningAlgorithm,
		AccessTTL:            in.AccessTTL,
		RefreshTTL:           in.RefreshTTL,
		PBKDF2Iterations:     in.PBKDF2Iterations,
		SaltBytes:            in.SaltBytes,
		MaxConcurrentHashes:  in.MaxConcurrentHashes,
		SessionBackend:       in.SessionBackend,
		LoginThrottleActive:  throttle,
		IPThrottleActive:     throttle && in.EnableIPThrottle,
		MaxLoginAttempts:     in.MaxLoginAttempts,
		LoginWindow:          in.LoginWindow,
		RegistrationOpen:     in.RegistrationEnabled,
		PasswordResetActive:  in.PasswordReset,
		DemoAccountEnabled:   in.DemoEnabled,
		AuditEnabled:         in.AuditEnabled,
		WeakIterationWarning: in.PBKDF2Iterations < recommendedIterations,
		ShortSecretWarning:   in.SecretBytes < recommendedSecretBytes,
	}
}
