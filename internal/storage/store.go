package storage

import "context"

// IdentityStore persists registered identities keyed by email.
type IdentityStore interface {
	// PutIfAbsent inserts the identity only if no record exists for its
	// email. On conflict it returns the existing record together with
	// ErrAlreadyExists. The insert is a single atomic conditional write.
	PutIfAbsent(ctx context.Context, id *Identity) (*Identity, error)

	// Get fetches an identity by its email (primary key).
	Get(ctx context.Context, email string) (*Identity, error)

	// GetByID fetches an identity by its opaque identity ID via the
	// secondary index.
	GetByID(ctx context.Context, identityID string) (*Identity, error)
}

// CertificateStore persists issued certificates keyed by certificate ID.
type CertificateStore interface {
	Put(ctx context.Context, cert *Certificate) error

	Get(ctx context.Context, certificateID string) (*Certificate, error)

	// IncrementValidationAttempts atomically bumps the validation
	// counter and returns the new value. Never read-modify-write.
	IncrementValidationAttempts(ctx context.Context, certificateID string) (int64, error)
}
