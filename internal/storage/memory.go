package storage

import (
	"context"
	"sync"
)

// MemoryIdentityStore is an in-memory IdentityStore for tests and local
// development. The mutex gives the same insert-if-absent atomicity the
// DynamoDB conditional write provides.
type MemoryIdentityStore struct {
	mu       sync.Mutex
	byEmail  map[string]*Identity
	byID     map[string]*Identity
	failNext error
}

// NewMemoryIdentityStore creates an empty in-memory identity store.
func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{
		byEmail: make(map[string]*Identity),
		byID:    make(map[string]*Identity),
	}
}

// FailNext makes the next operation return the given error, simulating
// an unavailable store.
func (s *MemoryIdentityStore) FailNext(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

func (s *MemoryIdentityStore) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

// PutIfAbsent inserts the identity unless its email is taken.
func (s *MemoryIdentityStore) PutIfAbsent(ctx context.Context, id *Identity) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	if existing, ok := s.byEmail[id.Email]; ok {
		cp := *existing
		return &cp, ErrAlreadyExists
	}

	cp := *id
	s.byEmail[id.Email] = &cp
	s.byID[id.IdentityID] = &cp
	return id, nil
}

// Get fetches an identity by email.
func (s *MemoryIdentityStore) Get(ctx context.Context, email string) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	existing, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *existing
	return &cp, nil
}

// GetByID fetches an identity by its ID.
func (s *MemoryIdentityStore) GetByID(ctx context.Context, identityID string) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	existing, ok := s.byID[identityID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *existing
	return &cp, nil
}

// MemoryCertificateStore is an in-memory CertificateStore for tests and
// local development.
type MemoryCertificateStore struct {
	mu       sync.Mutex
	certs    map[string]*Certificate
	failNext error
}

// NewMemoryCertificateStore creates an empty in-memory certificate store.
func NewMemoryCertificateStore() *MemoryCertificateStore {
	return &MemoryCertificateStore{certs: make(map[string]*Certificate)}
}

// FailNext makes the next operation return the given error.
func (s *MemoryCertificateStore) FailNext(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

func (s *MemoryCertificateStore) takeFailure() error {
	err := s.failNext
	s.failNext = nil
	return err
}

// Put persists a certificate.
func (s *MemoryCertificateStore) Put(ctx context.Context, cert *Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return err
	}

	cp := *cert
	s.certs[cert.CertificateID] = &cp
	return nil
}

// Get fetches a certificate by ID.
func (s *MemoryCertificateStore) Get(ctx context.Context, certificateID string) (*Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return nil, err
	}

	cert, ok := s.certs[certificateID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *cert
	return &cp, nil
}

// IncrementValidationAttempts bumps the counter under the store lock.
func (s *MemoryCertificateStore) IncrementValidationAttempts(ctx context.Context, certificateID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure(); err != nil {
		return 0, err
	}

	cert, ok := s.certs[certificateID]
	if !ok {
		return 0, ErrNotFound
	}
	cert.ValidationAttempts++
	return cert.ValidationAttempts, nil
}

// Corrupt overwrites a stored certificate field in place, bypassing the
// public contract. Test hook for tamper-detection scenarios.
func (s *MemoryCertificateStore) Corrupt(certificateID string, mutate func(*Certificate)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cert, ok := s.certs[certificateID]; ok {
		mutate(cert)
	}
}
