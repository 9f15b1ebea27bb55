package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const recordKeyFormat = "%s:ref:%s"

const (
	UserTTL     = 5 * time.Minute
	CategoryTTL = 10 * time.Minute
	PostTTL     = 30 * time.Minute
	DefaultTTL  = 5 * time.Minute
)

// RecordKey is the cache key of one record of the given kind.
func RecordKey(kind, refID string) string {
	return fmt.Sprintf(recordKeyFormat, kind, refID)
}

// TTLFor returns the cache lifetime of records of the given kind.
func TTLFor(kind string) time.Duration {
	switch kind {
	case "user":
		return UserTTL
	case "category":
		return CategoryTTL
	case "post":
		return PostTTL
	default:
		return DefaultTTL
	}
}

// Invalidate drops key and bumps its version so fills that started earlier
// are discarded. Errors are counted by the client hook and otherwise ignored.
func Invalidate(ctx context.Context, key string) {
	if client == nil {
		return
	}
	ver := VersionKey(key)
	_, _ = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, ver)
		pipe.Expire(ctx, ver, versionTTL)
		pipe.Del(ctx, key)
		return nil
	})
}

// InvalidateRecord drops the cached copy of one record.
func InvalidateRecord(ctx context.Context, kind, refID string) {
	Invalidate(ctx, RecordKey(kind, refID))
}
