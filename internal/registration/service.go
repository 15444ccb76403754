// Package registration enforces the one-identity-per-email invariant.
// Uniqueness rides entirely on the store's conditional write; the
// service never checks existence with a separate read, so concurrent
// registrations for the same email collapse to exactly one winner.
package registration

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/cert-registry/internal/notify"
	"github.com/ignite/cert-registry/internal/pkg/logger"
	"github.com/ignite/cert-registry/internal/storage"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Notifier enqueues a notification without blocking the caller.
// Enqueue failures are observed by the notifier itself, never by the
// registration request.
type Notifier interface {
	PublishAsync(msg notify.Message)
}

// Service registers identities.
type Service struct {
	store    storage.IdentityStore
	notifier Notifier
	now      func() time.Time
}

// NewService creates a registration service. notifier may be nil when
// no notification channel is configured.
func NewService(store storage.IdentityStore, notifier Notifier) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// SetClock overrides the service clock. Test hook.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Register creates a new identity for the given email. Exactly one
// concurrent Register call per email can succeed; the rest receive
// AlreadyRegisteredError carrying the winner's identity ID.
func (s *Service) Register(ctx context.Context, email, displayName, accountType string) (*storage.Identity, error) {
	email = strings.TrimSpace(email)
	displayName = strings.TrimSpace(displayName)
	accountType = strings.TrimSpace(accountType)

	if email == "" || displayName == "" || accountType == "" {
		return nil, &ValidationError{Msg: "missing required fields: email, displayName, accountType"}
	}
	if !emailRegex.MatchString(email) {
		return nil, &ValidationError{Msg: "email is not a valid address"}
	}

	now := storage.FormatTime(s.now())
	id := &storage.Identity{
		IdentityID:   uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		AccountType:  accountType,
		RegisteredAt: now,
		Status:       storage.IdentityStatusActive,
		LastAccessAt: now,
	}

	created, err := s.store.PutIfAbsent(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			logger.Info("registration conflict", "email", email, "identity_id", created.IdentityID)
			return nil, &AlreadyRegisteredError{IdentityID: created.IdentityID}
		}
		return nil, fmt.Errorf("persisting identity: %w", err)
	}

	logger.Info("identity registered", "email", email, "identity_id", created.IdentityID, "account_type", accountType)

	if s.notifier != nil {
		s.notifier.PublishAsync(notify.Message{
			Recipient: email,
			Subject:   "Registration confirmed",
			Body: fmt.Sprintf("Hello %s,\n\nYour registration is complete. Your identity ID is %s.\n",
				displayName, created.IdentityID),
		})
	}

	return created, nil
}

// Lookup fetches an identity by its ID.
func (s *Service) Lookup(ctx context.Context, identityID string) (*storage.Identity, error) {
	if strings.TrimSpace(identityID) == "" {
		return nil, &ValidationError{Msg: "identityId is required"}
	}
	return s.store.GetByID(ctx, identityID)
}
