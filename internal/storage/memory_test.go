package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIdentityStorePutIfAbsent(t *testing.T) {
	store := NewMemoryIdentityStore()
	ctx := context.Background()

	first := &Identity{IdentityID: "id-1", Email: "a@x.com", DisplayName: "Ana"}
	created, err := store.PutIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "id-1", created.IdentityID)

	// Conflict returns the existing record, not the attempted one
	second := &Identity{IdentityID: "id-2", Email: "a@x.com", DisplayName: "Impostor"}
	existing, err := store.PutIfAbsent(ctx, second)
	require.ErrorIs(t, err, ErrAlreadyExists)
	assert.Equal(t, "id-1", existing.IdentityID)
	assert.Equal(t, "Ana", existing.DisplayName)

	// Both lookups find the winner
	byEmail, err := store.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", byEmail.IdentityID)

	byID, err := store.GetByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", byID.Email)

	_, err = store.GetByID(ctx, "id-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCertificateStoreCounter(t *testing.T) {
	store := NewMemoryCertificateStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &Certificate{CertificateID: "cert-1", Status: CertStatusActive}))

	n, err := store.IncrementValidationAttempts(ctx, "cert-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.IncrementValidationAttempts(ctx, "cert-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	stored, err := store.Get(ctx, "cert-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.ValidationAttempts)

	_, err = store.IncrementValidationAttempts(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoresReturnCopies(t *testing.T) {
	store := NewMemoryCertificateStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &Certificate{CertificateID: "cert-1", Status: CertStatusActive}))

	got, err := store.Get(ctx, "cert-1")
	require.NoError(t, err)
	got.Status = CertStatusRevoked

	again, err := store.Get(ctx, "cert-1")
	require.NoError(t, err)
	assert.Equal(t, CertStatusActive, again.Status)
}

func TestTimeRoundTrip(t *testing.T) {
	in, err := time.Parse(time.RFC3339Nano, "2026-03-01T12:00:00.5Z")
	require.NoError(t, err)

	formatted := FormatTime(in)
	parsed, err := ParseTime(formatted)
	require.NoError(t, err)
	assert.Equal(t, formatted, FormatTime(parsed))

	_, err = ParseTime("yesterday")
	assert.Error(t, err)
}
