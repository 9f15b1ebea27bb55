package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist tracks revoked token ids in Redis until the token would have
// expired anyway. A nil client turns every call into a no-op.
type Blacklist struct {
	rdb *redis.Client
}

func NewBlacklist(rdb *redis.Client) *Blacklist {
	return &Blacklist{rdb: rdb}
}

func blacklistKey(jti string) string {
	return "blacklist:" + jti
}

// Revoke marks the token id as revoked for ttl.
func (b *Blacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if b == nil || b.rdb == nil || jti == "" || ttl <= 0 {
		return nil
	}
	return b.rdb.Set(ctx, blacklistKey(jti), "1", ttl).Err()
}

// IsRevoked reports whether the token id was revoked.
func (b *Blacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if b == nil || b.rdb == nil || jti == "" {
		return false, nil
	}
	n, err := b.rdb.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
