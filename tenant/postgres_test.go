package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/blackfang-intel/fangauth"
	"github.com/jackc/pgx/v5/pgconn"
)

var tenantRowColumns = []string{
	"id", "name", "email", "password_hash", "company_name", "industry",
	"subscription_plan", "monthly_fee", "is_active", "created_at", "updated_at", "last_login",
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresGetTenantByEmail(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM companies WHERE email").
		WithArgs("demo@blackfangintel.com").
		WillReturnRows(sqlmock.NewRows(tenantRowColumns).AddRow(
			1, DemoName, "demo@blackfangintel.com", "pbkdf2$x", DemoCompanyName, DemoIndustry,
			"Professional", 45000, true, created, created, nil,
		))

	rec, err := store.GetTenantByEmail(context.Background(), "demo@blackfangintel.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if rec.ID != 1 || rec.CompanyName != DemoCompanyName || rec.MonthlyFee != 45000 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.SubscriptionPlan != fangauth.PlanProfessional {
		t.Fatalf("expected plan to be lowercased, got %q", rec.SubscriptionPlan)
	}
	if !rec.CreatedAt.Equal(created) {
		t.Fatalf("unexpected created_at: %v", rec.CreatedAt)
	}
	if rec.LastLogin != nil {
		t.Fatalf("expected no last login for a NULL column, got %v", rec.LastLogin)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresGetTenantNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("FROM companies WHERE id").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(tenantRowColumns))

	if _, err := store.GetTenantByID(context.Background(), 42); !errors.Is(err, fangauth.ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresQueryFailureIsUnavailable(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("FROM companies WHERE email").
		WithArgs("a@b.com").
		WillReturnError(errors.New("connection refused"))

	if _, err := store.GetTenantByEmail(context.Background(), "a@b.com"); !errors.Is(err, fangauth.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestPostgresUpdatePasswordHash(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE companies SET password_hash").
		WithArgs("new-hash", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE companies SET password_hash").
		WithArgs("new-hash", int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.UpdatePasswordHash(context.Background(), 7, "new-hash"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.UpdatePasswordHash(context.Background(), 8, "new-hash"); !errors.Is(err, fangauth.ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound for zero rows, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresTouchLastLogin(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE companies SET last_login").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.TouchLastLogin(context.Background(), 3); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresCreateTenant(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO companies").
		WithArgs("Jane", "jane@dealer.in", "hash", "Jane Motors", sqlmock.AnyArg(), "basic", int64(25000)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(5, now, now))

	rec, err := store.CreateTenant(context.Background(), fangauth.CreateTenantInput{
		Name:             "Jane",
		Email:            "jane@dealer.in",
		PasswordHash:     "hash",
		CompanyName:      "Jane Motors",
		SubscriptionPlan: fangauth.PlanBasic,
		MonthlyFee:       25000,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID != 5 || !rec.IsActive || rec.Email != "jane@dealer.in" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPostgresCreateTenantDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO companies").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, Message: "duplicate key value"})

	_, err := store.CreateTenant(context.Background(), fangauth.CreateTenantInput{
		Name:             "Jane",
		Email:            "jane@dealer.in",
		PasswordHash:     "hash",
		SubscriptionPlan: fangauth.PlanBasic,
	})
	if !errors.Is(err, fangauth.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestPostgresPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewPostgresStore(db)

	mock.ExpectPing()
	mock.ExpectPing().WillReturnError(errors.New("down"))

	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := store.Ping(context.Background()); !errors.Is(err, fangauth.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close of borrowed pool should be a no-op: %v", err)
	}
}
