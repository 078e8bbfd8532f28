package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/chainpayroll/payroll/internal/wallet"
)

const challengeKeyPrefix = "challenge:v1:"

// ErrChallengeNotFound is returned when a nonce was never issued for the
// wallet, already used, or expired.
var ErrChallengeNotFound = errors.New("sign-in challenge expired or unknown")

// Challenge is a one-time message the wallet signs to prove it holds the key
// for its address.
type Challenge struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ChallengeStore keeps issued challenge messages until they are taken.
type ChallengeStore interface {
	Put(ctx context.Context, key, message string, ttl time.Duration) error
	// Take returns the message and removes it in one step.
	Take(ctx context.Context, key string) (string, error)
}

// Challenger issues challenges and verifies signed answers.
type Challenger struct {
	store   ChallengeStore
	appName string
	ttl     time.Duration
	now     func() time.Time
}

// NewChallenger builds a challenger whose messages name appName.
func NewChallenger(store ChallengeStore, appName string, ttl time.Duration) *Challenger {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if appName == "" {
		appName = "PayrollChain"
	}
	return &Challenger{store: store, appName: appName, ttl: ttl, now: time.Now}
}

// Issue creates a fresh challenge for addr.
func (c *Challenger) Issue(ctx context.Context, addr wallet.Address) (Challenge, error) {
	nonce := uuid.NewString()
	expires := c.now().UTC().Add(c.ttl)
	msg := fmt.Sprintf("Sign in to %s\n\nWallet: %s\nNonce: %s\nExpires: %s",
		c.appName, addr, nonce, expires.Format(time.RFC3339))

	if err := c.store.Put(ctx, challengeKey(addr, nonce), msg, c.ttl); err != nil {
		return Challenge{}, fmt.Errorf("store challenge: %w", err)
	}
	return Challenge{Nonce: nonce, Message: msg, ExpiresAt: expires}, nil
}

// Verify consumes the challenge issued to addr under nonce and checks the
// signature over its message. A nonce is spent even when the signature fails.
func (c *Challenger) Verify(ctx context.Context, addr wallet.Address, nonce, signature string) error {
	if nonce == "" {
		return ErrChallengeNotFound
	}
	msg, err := c.store.Take(ctx, challengeKey(addr, nonce))
	if err != nil {
		return err
	}
	return wallet.VerifySignature(addr, msg, signature)
}

func challengeKey(addr wallet.Address, nonce string) string {
	return challengeKeyPrefix + strings.ToLower(addr.String()) + ":" + nonce
}

// RedisChallengeStore keeps challenges as plain values with a TTL.
type RedisChallengeStore struct {
	client *redis.Client
}

// NewRedisChallengeStore wraps a connected Redis client.
func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{client: client}
}

func (s *RedisChallengeStore) Put(ctx context.Context, key, message string, ttl time.Duration) error {
	return s.client.Set(ctx, key, message, ttl).Err()
}

func (s *RedisChallengeStore) Take(ctx context.Context, key string) (string, error) {
	msg, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrChallengeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("take challenge: %w", err)
	}
	return msg, nil
}

type memoryChallenge struct {
	message   string
	expiresAt time.Time
}

type memoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]memoryChallenge
	now        func() time.Time
}

// NewMemoryChallengeStore builds an in-process store for development and tests.
func NewMemoryChallengeStore() ChallengeStore {
	return &memoryChallengeStore{challenges: make(map[string]memoryChallenge), now: time.Now}
}

func (s *memoryChallengeStore) Put(_ context.Context, key, message string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[key] = memoryChallenge{message: message, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *memoryChallengeStore) Take(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[key]
	delete(s.challenges, key)
	if !ok || !s.now().Before(ch.expiresAt) {
		return "", ErrChallengeNotFound
	}
	return ch.message, nil
}
