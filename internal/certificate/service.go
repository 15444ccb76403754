// Package certificate issues and validates time-bounded credentials
// bound to registered identities. Each certificate carries a SHA-256
// integrity fingerprint over its immutable fields; see ComputeFingerprint
// for the integrity-not-authentication contract.
package certificate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/cert-registry/internal/notify"
	"github.com/ignite/cert-registry/internal/pkg/logger"
	"github.com/ignite/cert-registry/internal/storage"
)

// ValidationError reports malformed or missing client input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Reason classifies a validation outcome. Outcomes are values, never
// errors: a tampered or expired certificate is a normal result.
type Reason string

const (
	ReasonOK       Reason = "ok"
	ReasonExpired  Reason = "expired"
	ReasonTampered Reason = "tampered"
	ReasonRevoked  Reason = "revoked"
	ReasonNotFound Reason = "not_found"
)

// ValidationResult is the outcome of validating a certificate.
type ValidationResult struct {
	Valid              bool   `json:"valid"`
	Reason             Reason `json:"reason"`
	ValidationAttempts int64  `json:"validationAttempts,omitempty"`
}

// IdentityResolver looks up identities for referential checks.
// storage.IdentityStore satisfies it; Cache wraps it with Redis.
type IdentityResolver interface {
	GetByID(ctx context.Context, identityID string) (*storage.Identity, error)
}

// Notifier enqueues a notification without blocking the caller.
type Notifier interface {
	PublishAsync(msg notify.Message)
}

// Service issues and validates certificates.
type Service struct {
	store      storage.CertificateStore
	identities IdentityResolver
	notifier   Notifier
	now        func() time.Time
}

// NewService creates a certificate service. notifier may be nil.
func NewService(store storage.CertificateStore, identities IdentityResolver, notifier Notifier) *Service {
	return &Service{
		store:      store,
		identities: identities,
		notifier:   notifier,
		now:        time.Now,
	}
}

// SetClock overrides the service clock. Test hook.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Issue generates a certificate for an existing identity. The original
// deployment issued against unverified identity IDs; this service
// enforces referential integrity and returns storage.ErrNotFound for an
// unknown owner.
func (s *Service) Issue(ctx context.Context, identityID, certificateType string, validityDays int) (*storage.Certificate, error) {
	identityID = strings.TrimSpace(identityID)
	certificateType = strings.TrimSpace(certificateType)

	if identityID == "" || certificateType == "" {
		return nil, &ValidationError{Msg: "missing required fields: identityId, certificateType"}
	}
	if validityDays <= 0 {
		return nil, &ValidationError{Msg: "validityDays must be a positive integer"}
	}

	owner, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("identity %s: %w", identityID, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("resolving identity: %w", err)
	}

	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(time.Duration(validityDays) * 86400 * time.Second)

	cert := &storage.Certificate{
		CertificateID:      uuid.NewString(),
		OwnerIdentityID:    owner.IdentityID,
		CertificateType:    certificateType,
		IssuedAt:           storage.FormatTime(issuedAt),
		ExpiresAt:          storage.FormatTime(expiresAt),
		Status:             storage.CertStatusActive,
		ValidationAttempts: 0,
	}
	cert.IntegrityFingerprint = ComputeFingerprint(cert.OwnerIdentityID, cert.CertificateID, cert.IssuedAt)

	if err := s.store.Put(ctx, cert); err != nil {
		return nil, fmt.Errorf("persisting certificate: %w", err)
	}

	logger.Info("certificate issued",
		"certificate_id", cert.CertificateID,
		"identity_id", cert.OwnerIdentityID,
		"type", certificateType,
		"expires_at", cert.ExpiresAt)

	if s.notifier != nil {
		s.notifier.PublishAsync(notify.Message{
			Recipient: owner.Email,
			Subject:   fmt.Sprintf("Your %s certificate has been issued", certificateType),
			Body: fmt.Sprintf("Hello %s,\n\nCertificate %s was issued to you and is valid until %s.\n",
				owner.DisplayName, cert.CertificateID, cert.ExpiresAt),
		})
	}

	return cert, nil
}

// Validate fetches a certificate, recomputes its fingerprint from
// stored fields and checks expiry and status. Every decided outcome
// bumps the validation counter through the store's atomic increment;
// an unknown ID has no record to count on and reports not_found.
func (s *Service) Validate(ctx context.Context, certificateID string) (*ValidationResult, error) {
	certificateID = strings.TrimSpace(certificateID)
	if certificateID == "" {
		return nil, &ValidationError{Msg: "certificateId is required"}
	}

	cert, err := s.store.Get(ctx, certificateID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &ValidationResult{Valid: false, Reason: ReasonNotFound}, nil
		}
		return nil, fmt.Errorf("fetching certificate: %w", err)
	}

	attempts, err := s.store.IncrementValidationAttempts(ctx, certificateID)
	if err != nil {
		return nil, fmt.Errorf("counting validation attempt: %w", err)
	}

	result := &ValidationResult{ValidationAttempts: attempts}

	recomputed := ComputeFingerprint(cert.OwnerIdentityID, cert.CertificateID, cert.IssuedAt)
	switch {
	case !FingerprintsEqual(recomputed, cert.IntegrityFingerprint):
		result.Reason = ReasonTampered
	case cert.Status == storage.CertStatusRevoked:
		result.Reason = ReasonRevoked
	case s.expired(cert):
		result.Reason = ReasonExpired
	default:
		result.Valid = true
		result.Reason = ReasonOK
	}

	logger.Info("certificate validated",
		"certificate_id", certificateID,
		"reason", string(result.Reason),
		"attempts", attempts)

	return result, nil
}

func (s *Service) expired(cert *storage.Certificate) bool {
	expiresAt, err := storage.ParseTime(cert.ExpiresAt)
	if err != nil {
		// An unparseable expiry on a fingerprint-clean record should be
		// impossible; treat it as expired rather than valid.
		return true
	}
	return !s.now().UTC().Before(expiresAt)
}
