package tenant

import (
	"context"
	"sync"
	"time"

	"github.com/blackfang-intel/fangauth"
)

// MemoryStore is a mutex-guarded TenantProvider. Records are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[int64]fangauth.TenantRecord
	byEmail map[string]int64
	nextID  int64
	now     func() time.Time
}

var _ fangauth.TenantProvider = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[int64]fangauth.TenantRecord),
		byEmail: make(map[string]int64),
		nextID:  1,
		now:     time.Now,
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) GetTenantByEmail(_ context.Context, email string) (fangauth.TenantRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return fangauth.TenantRecord{}, fangauth.ErrTenantNotFound
	}
	return s.activeLocked(id)
}

func (s *MemoryStore) GetTenantByID(_ context.Context, id int64) (fangauth.TenantRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked(id)
}

func (s *MemoryStore) activeLocked(id int64) (fangauth.TenantRecord, error) {
	rec, ok := s.byID[id]
	if !ok || !rec.IsActive {
		return fangauth.TenantRecord{}, fangauth.ErrTenantNotFound
	}
	return rec, nil
}

func (s *MemoryStore) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return fangauth.ErrTenantNotFound
	}
	rec.PasswordHash = hash
	rec.UpdatedAt = s.now().UTC()
	s.byID[id] = rec
	return nil
}

func (s *MemoryStore) TouchLastLogin(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return fangauth.ErrTenantNotFound
	}
	now := s.now().UTC()
	rec.LastLogin = &now
	s.byID[id] = rec
	return nil
}

func (s *MemoryStore) CreateTenant(_ context.Context, in fangauth.CreateTenantInput) (fangauth.TenantRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[in.Email]; ok {
		return fangauth.TenantRecord{}, fangauth.ErrAccountExists
	}
	now := s.now().UTC()
	rec := fangauth.TenantRecord{
		ID:               s.nextID,
		Name:             in.Name,
		Email:            in.Email,
		PasswordHash:     in.PasswordHash,
		CompanyName:      in.CompanyName,
		Industry:         in.Industry,
		SubscriptionPlan: in.SubscriptionPlan,
		MonthlyFee:       in.MonthlyFee,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.nextID++
	s.byID[rec.ID] = rec
	s.byEmail[rec.Email] = rec.ID
	return rec, nil
}

// SetActive flips a tenant's is_active flag.
func (s *MemoryStore) SetActive(id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[id]
	if !ok {
		return fangauth.ErrTenantNotFound
	}
	rec.IsActive = active
	s.byID[id] = rec
	return nil
}
