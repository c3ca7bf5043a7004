package oauth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryTicketStore implements TicketStore with an atomic GetDel, mirroring
// Redis GETDEL semantics.
type memoryTicketStore struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemoryTicketStore() *memoryTicketStore {
	return &memoryTicketStore{entries: make(map[string]string)}
}

func (m *memoryTicketStore) Set(key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *memoryTicketStore) GetDel(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.entries[key]
	if !ok {
		return "", ErrTicketNotFound
	}
	delete(m.entries, key)
	return val, nil
}

func TestLinkTicketRoundTrip(t *testing.T) {
	broker := NewBroker(newMemoryTicketStore())

	info := UserInfo{
		Provider:       "google",
		ProviderUserID: "sub-123",
		Email:          "a@x.com",
		Name:           "Ann",
	}

	key, err := broker.CreateLinkTicket(info)
	require.NoError(t, err)
	require.NotEmpty(t, key)

	got, err := broker.ConsumeLinkTicket(key)
	require.NoError(t, err)
	assert.Equal(t, info, got)
}

func TestLinkTicketIsSingleUse(t *testing.T) {
	broker := NewBroker(newMemoryTicketStore())

	key, err := broker.CreateLinkTicket(UserInfo{Provider: "kakao", Email: "a@x.com"})
	require.NoError(t, err)

	_, err = broker.ConsumeLinkTicket(key)
	require.NoError(t, err)

	_, err = broker.ConsumeLinkTicket(key)
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestLinkTicketConcurrentConsume(t *testing.T) {
	broker := NewBroker(newMemoryTicketStore())

	key, err := broker.CreateLinkTicket(UserInfo{Provider: "naver", Email: "a@x.com"})
	require.NoError(t, err)

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := broker.ConsumeLinkTicket(key)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrTicketNotFound)
		}
	}
	assert.Equal(t, 1, successes)
}

func TestLinkTicketKeysAreUnique(t *testing.T) {
	broker := NewBroker(newMemoryTicketStore())

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := broker.CreateLinkTicket(UserInfo{Provider: "google", Email: "a@x.com"})
		require.NoError(t, err)
		require.False(t, seen[key])
		seen[key] = true
	}
}

func TestLoginTicketRoundTrip(t *testing.T) {
	broker := NewBroker(newMemoryTicketStore())

	key, err := broker.CreateLoginTicket(42)
	require.NoError(t, err)

	userID, err := broker.ConsumeLoginTicket(key)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)

	_, err = broker.ConsumeLoginTicket(key)
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestUnknownTicketKey(t *testing.T) {
	broker := NewBroker(newMemoryTicketStore())

	_, err := broker.ConsumeLinkTicket("no-such-key")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}
