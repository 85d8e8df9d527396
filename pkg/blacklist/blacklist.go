package blacklist

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// Blacklist records revoked tokens by their jti until they would have expired anyway.
type Blacklist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenBlacklist manages blacklisted JWT ids in Redis
type TokenBlacklist struct {
	redis *redis.Client
	clock clockwork.Clock
}

// NewTokenBlacklist creates a new Redis-backed token blacklist
func NewTokenBlacklist(redisClient *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{
		redis: redisClient,
		clock: clockwork.NewRealClock(),
	}
}

func tokenKey(tokenID string) string {
	return fmt.Sprintf("blacklist:token:%s", tokenID)
}

// Revoke adds a token to the blacklist using its remaining lifetime as TTL
func (b *TokenBlacklist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(b.clock.Now())

	// If already expired, no need to blacklist
	if ttl <= 0 {
		return nil
	}

	if err := b.redis.Set(ctx, tokenKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to add token to blacklist: %w", err)
	}

	return nil
}

// IsRevoked checks if a token is in the blacklist
func (b *TokenBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	exists, err := b.redis.Exists(ctx, tokenKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}

	return exists > 0, nil
}

// MemoryBlacklist is used when Redis is disabled (local development, single instance).
type MemoryBlacklist struct {
	clock clockwork.Clock

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewMemoryBlacklist(clock clockwork.Clock) *MemoryBlacklist {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryBlacklist{
		clock:   clock,
		revoked: make(map[string]time.Time),
	}
}

func (b *MemoryBlacklist) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	now := b.clock.Now()
	if !expiresAt.After(now) {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// prune while we hold the lock
	for id, exp := range b.revoked {
		if !exp.After(now) {
			delete(b.revoked, id)
		}
	}
	b.revoked[tokenID] = expiresAt
	return nil
}

func (b *MemoryBlacklist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	exp, ok := b.revoked[tokenID]
	if !ok {
		return false, nil
	}
	return exp.After(b.clock.Now()), nil
}
