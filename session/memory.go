package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string]Record
	byTenant map[int64]map[string]struct{}
	now      func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]Record),
		byTenant: make(map[int64]map[string]struct{}),
		now:      time.Now,
	}
}

// Create records an active session for refreshToken, replacing any prior entry.
func (s *MemoryStore) Create(_ context.Context, tenantID int64, refreshToken string) error {
	if tenantID <= 0 {
		return ErrInvalidTenant
	}
	if refreshToken == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.records[refreshToken]; ok && prev.TenantID != tenantID {
		s.unindex(prev.TenantID, refreshToken)
	}
	s.records[refreshToken] = Record{
		TenantID:  tenantID,
		CreatedAt: s.now().UTC(),
		Active:    true,
	}

	idx, ok := s.byTenant[tenantID]
	if !ok {
		idx = make(map[string]struct{})
		s.byTenant[tenantID] = idx
	}
	idx[refreshToken] = struct{}{}
	return nil
}

// Validate returns the record for refreshToken or ErrSessionNotFound.
func (s *MemoryStore) Validate(_ context.Context, refreshToken string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[refreshToken]
	if !ok {
		return Record{}, ErrSessionNotFound
	}
	return rec, nil
}

// Revoke marks the session inactive when it exists.
func (s *MemoryStore) Revoke(_ context.Context, refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[refreshToken]; ok {
		rec.Active = false
		s.records[refreshToken] = rec
	}
	return nil
}

// RevokeAll marks every session of tenantID inactive.
func (s *MemoryStore) RevokeAll(_ context.Context, tenantID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token := range s.byTenant[tenantID] {
		rec := s.records[token]
		rec.Active = false
		s.records[token] = rec
	}
	return nil
}

// ActiveSessionCount returns the number of active sessions of tenantID.
func (s *MemoryStore) ActiveSessionCount(_ context.Context, tenantID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for token := range s.byTenant[tenantID] {
		if s.records[token].Active {
			n++
		}
	}
	return n, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) unindex(tenantID int64, token string) {
	idx := s.byTenant[tenantID]
	delete(idx, token)
	if len(idx) == 0 {
		delete(s.byTenant, tenantID)
	}
}
