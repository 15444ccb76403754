package certificate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/cert-registry/internal/notify"
	"github.com/ignite/cert-registry/internal/storage"
)

type fakeNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (f *fakeNotifier) PublishAsync(msg notify.Message) {
	f.mu.Lock()
	f.messages = append(f.messages, msg)
	f.mu.Unlock()
}

func (f *fakeNotifier) all() []notify.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Message(nil), f.messages...)
}

func setupTestService(t *testing.T) (*Service, *storage.MemoryCertificateStore, *storage.Identity, *fakeNotifier) {
	t.Helper()

	identities := storage.NewMemoryIdentityStore()
	owner := &storage.Identity{
		IdentityID:   "owner-1",
		Email:        "ana@example.com",
		DisplayName:  "Ana",
		AccountType:  "student",
		RegisteredAt: storage.FormatTime(time.Now()),
		Status:       storage.IdentityStatusActive,
	}
	_, err := identities.PutIfAbsent(context.Background(), owner)
	require.NoError(t, err)

	certs := storage.NewMemoryCertificateStore()
	notifier := &fakeNotifier{}
	return NewService(certs, identities, notifier), certs, owner, notifier
}

func TestIssueSuccess(t *testing.T) {
	svc, certs, owner, notifier := setupTestService(t)

	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return issuedAt })

	cert, err := svc.Issue(context.Background(), owner.IdentityID, "diploma", 365)
	require.NoError(t, err)

	assert.NotEmpty(t, cert.CertificateID)
	assert.Equal(t, owner.IdentityID, cert.OwnerIdentityID)
	assert.Equal(t, "diploma", cert.CertificateType)
	assert.Equal(t, storage.CertStatusActive, cert.Status)
	assert.Equal(t, int64(0), cert.ValidationAttempts)

	// Expiry is exactly validityDays * 86400 seconds after issuance
	issued, err := storage.ParseTime(cert.IssuedAt)
	require.NoError(t, err)
	expires, err := storage.ParseTime(cert.ExpiresAt)
	require.NoError(t, err)
	assert.Equal(t, 365*86400*time.Second, expires.Sub(issued))

	// Stored fingerprint matches a recomputation from stored fields
	assert.Equal(t,
		ComputeFingerprint(cert.OwnerIdentityID, cert.CertificateID, cert.IssuedAt),
		cert.IntegrityFingerprint)

	stored, err := certs.Get(context.Background(), cert.CertificateID)
	require.NoError(t, err)
	assert.Equal(t, cert.IntegrityFingerprint, stored.IntegrityFingerprint)

	// Issuance notification goes to the owner's email
	msgs := notifier.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, owner.Email, msgs[0].Recipient)
	assert.Contains(t, msgs[0].Body, cert.CertificateID)
}

func TestIssueValidation(t *testing.T) {
	svc, _, owner, _ := setupTestService(t)

	cases := []struct {
		name         string
		identityID   string
		certType     string
		validityDays int
	}{
		{"missing identity", "", "diploma", 365},
		{"missing type", owner.IdentityID, "", 365},
		{"zero validity", owner.IdentityID, "diploma", 0},
		{"negative validity", owner.IdentityID, "diploma", -5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Issue(context.Background(), tc.identityID, tc.certType, tc.validityDays)
			var vErr *ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}
}

func TestIssueUnknownIdentity(t *testing.T) {
	svc, _, _, notifier := setupTestService(t)

	_, err := svc.Issue(context.Background(), "no-such-identity", "diploma", 30)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Empty(t, notifier.all())
}

func TestValidateOK(t *testing.T) {
	svc, _, owner, _ := setupTestService(t)

	cert, err := svc.Issue(context.Background(), owner.IdentityID, "diploma", 30)
	require.NoError(t, err)

	result, err := svc.Validate(context.Background(), cert.CertificateID)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, ReasonOK, result.Reason)
	assert.Equal(t, int64(1), result.ValidationAttempts)

	// Attempts keep counting atomically
	result, err = svc.Validate(context.Background(), cert.CertificateID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.ValidationAttempts)
}

func TestValidateExpired(t *testing.T) {
	svc, _, owner, _ := setupTestService(t)

	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return issuedAt })
	cert, err := svc.Issue(context.Background(), owner.IdentityID, "diploma", 10)
	require.NoError(t, err)

	// Just before expiry: still valid
	svc.SetClock(func() time.Time { return issuedAt.Add(10*86400*time.Second - time.Second) })
	result, err := svc.Validate(context.Background(), cert.CertificateID)
	require.NoError(t, err)
	assert.True(t, result.Valid)

	// At expiry: reported expired, not an error
	svc.SetClock(func() time.Time { return issuedAt.Add(10 * 86400 * time.Second) })
	result, err = svc.Validate(context.Background(), cert.CertificateID)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonExpired, result.Reason)
}

func TestValidateTampered(t *testing.T) {
	svc, certs, owner, _ := setupTestService(t)

	cert, err := svc.Issue(context.Background(), owner.IdentityID, "diploma", 30)
	require.NoError(t, err)

	certs.Corrupt(cert.CertificateID, func(c *storage.Certificate) {
		c.IssuedAt = storage.FormatTime(time.Now().Add(-time.Hour))
	})

	result, err := svc.Validate(context.Background(), cert.CertificateID)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonTampered, result.Reason)
}

func TestValidateTamperedOwner(t *testing.T) {
	svc, certs, owner, _ := setupTestService(t)

	cert, err := svc.Issue(context.Background(), owner.IdentityID, "diploma", 30)
	require.NoError(t, err)

	certs.Corrupt(cert.CertificateID, func(c *storage.Certificate) {
		c.OwnerIdentityID = "someone-else"
	})

	result, err := svc.Validate(context.Background(), cert.CertificateID)
	require.NoError(t, err)
	assert.Equal(t, ReasonTampered, result.Reason)
}

func TestValidateRevoked(t *testing.T) {
	svc, certs, owner, _ := setupTestService(t)

	cert, err := svc.Issue(context.Background(), owner.IdentityID, "diploma", 30)
	require.NoError(t, err)

	certs.Corrupt(cert.CertificateID, func(c *storage.Certificate) {
		c.Status = storage.CertStatusRevoked
	})

	result, err := svc.Validate(context.Background(), cert.CertificateID)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonRevoked, result.Reason)
}

func TestValidateNotFound(t *testing.T) {
	svc, _, _, _ := setupTestService(t)

	result, err := svc.Validate(context.Background(), "no-such-cert")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonNotFound, result.Reason)
	assert.Equal(t, int64(0), result.ValidationAttempts)
}

func TestValidateStoreFailure(t *testing.T) {
	svc, certs, owner, _ := setupTestService(t)

	cert, err := svc.Issue(context.Background(), owner.IdentityID, "diploma", 30)
	require.NoError(t, err)

	certs.FailNext(errors.New("connection refused"))
	_, err = svc.Validate(context.Background(), cert.CertificateID)
	require.Error(t, err)
}
