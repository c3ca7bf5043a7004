package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	linkKeyPrefix    = "oauth_link:"
	successKeyPrefix = "oauth_success:"

	// LinkTicketTTL bounds how long a verified-but-unlinked assertion may
	// wait for the user's explicit linking confirmation.
	LinkTicketTTL = 10 * time.Minute
	// LoginTicketTTL bridges a single redirect round trip, nothing more.
	LoginTicketTTL = 5 * time.Minute
)

// ErrTicketNotFound means the ticket key is unknown, already consumed or
// expired.
var ErrTicketNotFound = errors.New("ticket not found")

// TicketStore is the key-value store behind the broker. GetDel must be an
// atomic read-and-delete so a ticket can never be consumed twice.
type TicketStore interface {
	Set(key, value string, ttl time.Duration) error
	// GetDel returns the value and removes the key, or ErrTicketNotFound.
	GetDel(key string) (string, error)
}

// Broker passes verified identity assertions across a redirect boundary as
// opaque single-use keys, so raw identity data never travels in
// client-visible URLs. Keys are random UUIDs generated server-side; their
// entropy is the only proof of possession, which makes generation
// security-critical.
type Broker struct {
	store TicketStore
}

// NewBroker creates a Broker over the given store.
func NewBroker(store TicketStore) *Broker {
	return &Broker{store: store}
}

// CreateLinkTicket stores the assertion and returns its opaque key.
func (b *Broker) CreateLinkTicket(info UserInfo) (string, error) {
	payload, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("marshal link ticket: %w", err)
	}

	key := uuid.NewString()
	if err := b.store.Set(linkKeyPrefix+key, string(payload), LinkTicketTTL); err != nil {
		return "", fmt.Errorf("store link ticket: %w", err)
	}
	return key, nil
}

// ConsumeLinkTicket atomically reads and deletes the assertion for the key.
func (b *Broker) ConsumeLinkTicket(key string) (UserInfo, error) {
	payload, err := b.store.GetDel(linkKeyPrefix + key)
	if err != nil {
		return UserInfo{}, err
	}

	var info UserInfo
	if err := json.Unmarshal([]byte(payload), &info); err != nil {
		return UserInfo{}, fmt.Errorf("unmarshal link ticket: %w", err)
	}
	return info, nil
}

// CreateLoginTicket stores a user id for the post-redirect token exchange,
// keeping the token pair itself out of the callback URL.
func (b *Broker) CreateLoginTicket(userID uint) (string, error) {
	key := uuid.NewString()
	value := strconv.FormatUint(uint64(userID), 10)
	if err := b.store.Set(successKeyPrefix+key, value, LoginTicketTTL); err != nil {
		return "", fmt.Errorf("store login ticket: %w", err)
	}
	return key, nil
}

// ConsumeLoginTicket atomically redeems a login ticket for its user id.
func (b *Broker) ConsumeLoginTicket(key string) (uint, error) {
	payload, err := b.store.GetDel(successKeyPrefix + key)
	if err != nil {
		return 0, err
	}

	id, err := strconv.ParseUint(payload, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse login ticket: %w", err)
	}
	return uint(id), nil
}

// redisTicketStore delegates TTL expiry and atomic GETDEL to Redis.
type redisTicketStore struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisTicketStore creates a TicketStore backed by the given client.
func NewRedisTicketStore(client *redis.Client) TicketStore {
	return &redisTicketStore{client: client, ctx: context.Background()}
}

func (s *redisTicketStore) Set(key, value string, ttl time.Duration) error {
	return s.client.Set(s.ctx, key, value, ttl).Err()
}

func (s *redisTicketStore) GetDel(key string) (string, error) {
	val, err := s.client.GetDel(s.ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrTicketNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getdel ticket: %w", err)
	}
	return val, nil
}
