package fangauth

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/blackfang-intel/fangauth/internal"
)

const (
	apiKeyPrefix      = "bf"
	apiKeySecretBytes = 16
)

// APIKeyInfo is the metadata recoverable from an API key without a lookup.
type APIKeyInfo struct {
	CompanyID int64
	CreatedAt time.Time
}

// GenerateAPIKey returns bf_{companyID}_{unix seconds}_{32 hex chars}.
func GenerateAPIKey(companyID int64) (string, error) {
	return generateAPIKey(companyID, time.Now())
}

func generateAPIKey(companyID int64, now time.Time) (string, error) {
	if companyID <= 0 {
		return "", ErrInvalidAPIKey
	}
	secret, err := internal.RandomHex(apiKeySecretBytes)
	if err != nil {
		return "", err
	}
	return apiKeyPrefix + "_" +
		strconv.FormatInt(companyID, 10) + "_" +
		strconv.FormatInt(now.Unix(), 10) + "_" +
		secret, nil
}

// ParseAPIKey splits a key produced by GenerateAPIKey. It does not prove the
// key was issued; that needs a stored copy.
func ParseAPIKey(key string) (APIKeyInfo, error) {
	parts := strings.Split(key, "_")
	if len(parts) != 4 || parts[0] != apiKeyPrefix || parts[3] == "" {
		return APIKeyInfo{}, ErrInvalidAPIKey
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id <= 0 {
		return APIKeyInfo{}, ErrInvalidAPIKey
	}
	ts, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || ts < 0 {
		return APIKeyInfo{}, ErrInvalidAPIKey
	}
	return APIKeyInfo{CompanyID: id, CreatedAt: time.Unix(ts, 0).UTC()}, nil
}

// IssueAPIKey mints an API key for the tenant of accessToken. The tenant's
// current plan must satisfy required.
func (e *Engine) IssueAPIKey(ctx context.Context, accessToken string, required Plan) (string, error) {
	claims, err := e.Authenticate(ctx, accessToken)
	if err != nil {
		return "", err
	}
	tenant, err := e.TenantByID(ctx, claims.CompanyID)
	if err != nil {
		return "", err
	}
	if !tenant.SubscriptionPlan.Satisfies(required) {
		return "", ErrInsufficientPlan
	}
	key, err := GenerateAPIKey(tenant.ID)
	if err != nil {
		return "", err
	}
	e.emitAudit(ctx, auditEventAPIKeyIssued, true, tenant.ID, nil, nil)
	return key, nil
}
