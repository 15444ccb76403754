package registration

import (
	"context"
	"errors"
	"sync"
	"testing"

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

func TestRegisterSuccess(t *testing.T) {
	store := storage.NewMemoryIdentityStore()
	notifier := &fakeNotifier{}
	svc := NewService(store, notifier)

	id, err := svc.Register(context.Background(), "ana@example.com", "Ana", "student")
	require.NoError(t, err)

	assert.NotEmpty(t, id.IdentityID)
	assert.Equal(t, "ana@example.com", id.Email)
	assert.Equal(t, "Ana", id.DisplayName)
	assert.Equal(t, "student", id.AccountType)
	assert.Equal(t, storage.IdentityStatusActive, id.Status)
	assert.NotEmpty(t, id.RegisteredAt)

	// Welcome notification enqueued for the new identity
	msgs := notifier.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ana@example.com", msgs[0].Recipient)
	assert.Contains(t, msgs[0].Body, id.IdentityID)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(storage.NewMemoryIdentityStore(), nil)

	cases := []struct {
		name                            string
		email, displayName, accountType string
	}{
		{"missing email", "", "Ana", "student"},
		{"missing name", "ana@example.com", "", "student"},
		{"missing type", "ana@example.com", "Ana", ""},
		{"whitespace only", "   ", "Ana", "student"},
		{"not an address", "not-an-email", "Ana", "student"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.email, tc.displayName, tc.accountType)
			var vErr *ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}
}

func TestRegisterDuplicateReturnsExistingID(t *testing.T) {
	svc := NewService(storage.NewMemoryIdentityStore(), nil)

	first, err := svc.Register(context.Background(), "ana@example.com", "Ana", "student")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "ana@example.com", "Ana Again", "staff")
	var dup *AlreadyRegisteredError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.IdentityID, dup.IdentityID)
}

// Exactly one of N concurrent registrations for the same email succeeds;
// every loser learns the winner's identity ID.
func TestRegisterConcurrentUniqueness(t *testing.T) {
	svc := NewService(storage.NewMemoryIdentityStore(), nil)

	const n = 64
	var wg sync.WaitGroup
	results := make([]error, n)
	winners := make([]*storage.Identity, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := svc.Register(context.Background(), "race@example.com", "Racer", "student")
			results[i] = err
			winners[i] = id
		}(i)
	}
	wg.Wait()

	var successes int
	var winnerID string
	for i := 0; i < n; i++ {
		if results[i] == nil {
			successes++
			winnerID = winners[i].IdentityID
		}
	}
	require.Equal(t, 1, successes)

	for i := 0; i < n; i++ {
		if results[i] == nil {
			continue
		}
		var dup *AlreadyRegisteredError
		require.ErrorAs(t, results[i], &dup)
		assert.Equal(t, winnerID, dup.IdentityID)
	}
}

func TestRegisterStoreFailure(t *testing.T) {
	store := storage.NewMemoryIdentityStore()
	svc := NewService(store, nil)

	store.FailNext(errors.New("connection refused"))
	_, err := svc.Register(context.Background(), "ana@example.com", "Ana", "student")
	require.Error(t, err)

	var vErr *ValidationError
	var dup *AlreadyRegisteredError
	assert.False(t, errors.As(err, &vErr))
	assert.False(t, errors.As(err, &dup))
}

func TestLookup(t *testing.T) {
	svc := NewService(storage.NewMemoryIdentityStore(), nil)

	id, err := svc.Register(context.Background(), "ana@example.com", "Ana", "student")
	require.NoError(t, err)

	got, err := svc.Lookup(context.Background(), id.IdentityID)
	require.NoError(t, err)
	assert.Equal(t, id.Email, got.Email)

	_, err = svc.Lookup(context.Background(), "missing-id")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
