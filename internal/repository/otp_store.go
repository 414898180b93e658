package repository

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"aquanova-auth/internal/domain"
)

// OTPStore guarda codigos de verificacion de un solo uso indexados por email.
// La ausencia de registro se informa con found=false, nunca como error.
type OTPStore interface {
	// Put reemplaza atomicamente cualquier registro previo del email.
	Put(ctx context.Context, email, code string, ttl time.Duration) (domain.OTPRecord, error)
	FindLatestUnverified(ctx context.Context, email, code string) (domain.OTPRecord, bool, error)
	FindLatestVerified(ctx context.Context, email, code string) (domain.OTPRecord, bool, error)
	FindLatestAny(ctx context.Context, email, code string) (domain.OTPRecord, bool, error)
	MarkVerified(ctx context.Context, id string) error
	DeleteAll(ctx context.Context, email string) error
}

// verifiedFilter selecciona registros segun su flag verified.
type verifiedFilter int

const (
	anyVerified verifiedFilter = iota
	onlyUnverified
	onlyVerified
)

func (f verifiedFilter) match(verified bool) bool {
	switch f {
	case onlyUnverified:
		return !verified
	case onlyVerified:
		return verified
	default:
		return true
	}
}

// newOTPID genera un ULID; su orden lexicografico sigue al de creacion.
func newOTPID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

// MemoryOTPStore implementa OTPStore en memoria, para desarrollo y tests.
type MemoryOTPStore struct {
	mu      sync.Mutex
	now     func() time.Time
	records map[string][]domain.OTPRecord
}

func NewMemoryOTPStore() *MemoryOTPStore {
	return &MemoryOTPStore{
		now:     func() time.Time { return time.Now().UTC() },
		records: make(map[string][]domain.OTPRecord),
	}
}

// WithClock reemplaza el reloj usado para expiresAt y createdAt.
func (s *MemoryOTPStore) WithClock(now func() time.Time) *MemoryOTPStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *MemoryOTPStore) Put(_ context.Context, email, code string, ttl time.Duration) (domain.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	rec := domain.OTPRecord{
		ID:        newOTPID(now),
		Email:     email,
		Code:      code,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	s.records[email] = []domain.OTPRecord{rec}
	return rec, nil
}

func (s *MemoryOTPStore) FindLatestUnverified(_ context.Context, email, code string) (domain.OTPRecord, bool, error) {
	rec, ok := s.findLatest(email, code, onlyUnverified)
	return rec, ok, nil
}

func (s *MemoryOTPStore) FindLatestVerified(_ context.Context, email, code string) (domain.OTPRecord, bool, error) {
	rec, ok := s.findLatest(email, code, onlyVerified)
	return rec, ok, nil
}

func (s *MemoryOTPStore) FindLatestAny(_ context.Context, email, code string) (domain.OTPRecord, bool, error) {
	rec, ok := s.findLatest(email, code, anyVerified)
	return rec, ok, nil
}

func (s *MemoryOTPStore) findLatest(email, code string, filter verifiedFilter) (domain.OTPRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		latest domain.OTPRecord
		found  bool
	)
	for _, rec := range s.records[email] {
		if rec.Code != code || !filter.match(rec.Verified) {
			continue
		}
		if !found || rec.CreatedAt.After(latest.CreatedAt) {
			latest = rec
			found = true
		}
	}
	return latest, found
}

func (s *MemoryOTPStore) MarkVerified(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for email, recs := range s.records {
		for i := range recs {
			if recs[i].ID == id {
				recs[i].Verified = true
				s.records[email] = recs
				return nil
			}
		}
	}
	return nil
}

func (s *MemoryOTPStore) DeleteAll(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, email)
	return nil
}

// Count devuelve la cantidad de registros guardados para el email.
func (s *MemoryOTPStore) Count(email string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records[email])
}
