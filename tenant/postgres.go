package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blackfang-intel/fangauth"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Schema is the companies DDL PostgresStore expects. It is applied out of band.
const Schema = `
CREATE TABLE IF NOT EXISTS companies (
    id SERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    email VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(255) NOT NULL,
    company_name VARCHAR(255),
    industry VARCHAR(100),
    subscription_plan VARCHAR(50) DEFAULT 'basic',
    monthly_fee INTEGER DEFAULT 25000,
    last_login TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    is_active BOOLEAN DEFAULT TRUE
)`

const tenantColumns = `id, name, email, password_hash,
	COALESCE(company_name, ''), COALESCE(industry, ''),
	COALESCE(subscription_plan, 'basic'), COALESCE(monthly_fee, 0),
	is_active, created_at, updated_at, last_login`

const (
	queryByEmail = `SELECT ` + tenantColumns + ` FROM companies WHERE email = $1 AND is_active = TRUE`
	queryByID    = `SELECT ` + tenantColumns + ` FROM companies WHERE id = $1 AND is_active = TRUE`

	execUpdatePassword = `UPDATE companies SET password_hash = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	execTouchLogin     = `UPDATE companies SET last_login = CURRENT_TIMESTAMP WHERE id = $1`

	queryInsert = `INSERT INTO companies
	(name, email, password_hash, company_name, industry, subscription_plan, monthly_fee)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id, created_at, updated_at`

	pgUniqueViolation = "23505"
)

// PostgresStore implements fangauth.TenantProvider on the companies table.
type PostgresStore struct {
	db    *sql.DB
	owned bool
}

var _ fangauth.TenantProvider = (*PostgresStore)(nil)

// Open connects with the pgx stdlib driver and tunes the pool.
func Open(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &PostgresStore{db: db, owned: true}, nil
}

// NewPostgresStore wraps an existing pool. The caller keeps ownership of db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Close closes the pool when it was opened by Open.
func (s *PostgresStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", fangauth.ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) GetTenantByEmail(ctx context.Context, email string) (fangauth.TenantRecord, error) {
	return s.queryOne(ctx, queryByEmail, email)
}

func (s *PostgresStore) GetTenantByID(ctx context.Context, id int64) (fangauth.TenantRecord, error) {
	return s.queryOne(ctx, queryByID, id)
}

func (s *PostgresStore) queryOne(ctx context.Context, query string, arg any) (fangauth.TenantRecord, error) {
	var (
		rec       fangauth.TenantRecord
		plan      string
		lastLogin sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&rec.ID,
		&rec.Name,
		&rec.Email,
		&rec.PasswordHash,
		&rec.CompanyName,
		&rec.Industry,
		&plan,
		&rec.MonthlyFee,
		&rec.IsActive,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&lastLogin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fangauth.TenantRecord{}, fangauth.ErrTenantNotFound
	}
	if err != nil {
		return fangauth.TenantRecord{}, fmt.Errorf("%w: %v", fangauth.ErrUnavailable, err)
	}
	rec.SubscriptionPlan = fangauth.Plan(strings.ToLower(plan))
	if lastLogin.Valid {
		t := lastLogin.Time.UTC()
		rec.LastLogin = &t
	}
	return rec, nil
}

func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	res, err := s.db.ExecContext(ctx, execUpdatePassword, hash, id)
	if err != nil {
		return fmt.Errorf("%w: %v", fangauth.ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", fangauth.ErrUnavailable, err)
	}
	if n == 0 {
		return fangauth.ErrTenantNotFound
	}
	return nil
}

func (s *PostgresStore) TouchLastLogin(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, execTouchLogin, id); err != nil {
		return fmt.Errorf("%w: %v", fangauth.ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) CreateTenant(ctx context.Context, in fangauth.CreateTenantInput) (fangauth.TenantRecord, error) {
	rec := fangauth.TenantRecord{
		Name:             in.Name,
		Email:            in.Email,
		PasswordHash:     in.PasswordHash,
		CompanyName:      in.CompanyName,
		Industry:         in.Industry,
		SubscriptionPlan: in.SubscriptionPlan,
		MonthlyFee:       in.MonthlyFee,
		IsActive:         true,
	}
	err := s.db.QueryRowContext(ctx, queryInsert,
		in.Name,
		in.Email,
		in.PasswordHash,
		nullable(in.CompanyName),
		nullable(in.Industry),
		in.SubscriptionPlan.String(),
		in.MonthlyFee,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fangauth.TenantRecord{}, fangauth.ErrAccountExists
		}
		return fangauth.TenantRecord{}, fmt.Errorf("%w: %v", fangauth.ErrUnavailable, err)
	}
	return rec, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
