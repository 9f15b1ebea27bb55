package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"overthinkistan/internal/observability"

	"github.com/redis/go-redis/v9"
)

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// versionTTL outlives any fill in flight; an expired counter reads as "0".
const versionTTL = time.Hour

// VersionKey holds the invalidation counter of key.
func VersionKey(key string) string {
	return key + ":ver"
}

// setIfVersion stores the value only while the counter still holds the
// version read before the fetch.
var setIfVersion = redis.NewScript(`
local v = redis.call("GET", KEYS[2]) or "0"
if v ~= ARGV[2] then
  return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

func readVersion(ctx context.Context, key string) (string, error) {
	v, err := client.Get(ctx, VersionKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return v, err
}

// Aside reads key into dest, falling back to fetch on a miss and storing
// the fetched value. Cache failures degrade to calling fetch; fetch errors
// are returned as-is and nothing is cached for them. A fill is dropped when
// the key was invalidated while fetch ran.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	prefix := key
	if i := strings.IndexByte(key, ':'); i > 0 {
		prefix = key[:i]
	}

	found, err := GetJSON(ctx, key, dest)
	switch {
	case err == nil && found:
		observability.CacheLookups.WithLabelValues(prefix, "hit").Inc()
		return nil
	case err != nil:
		observability.CacheLookups.WithLabelValues(prefix, "error").Inc()
	default:
		observability.CacheLookups.WithLabelValues(prefix, "miss").Inc()
	}

	version, verErr := "", err
	if client != nil && err == nil {
		version, verErr = readVersion(ctx, key)
	}

	if err := fetch(); err != nil {
		return err
	}

	if client == nil || verErr != nil {
		return nil
	}
	b, err := json.Marshal(dest)
	if err != nil {
		return nil
	}
	stored, err := setIfVersion.Run(ctx, client, []string{key, VersionKey(key)}, string(b), version, ttl.Milliseconds()).Int()
	if err == nil && stored == 0 {
		observability.CacheLookups.WithLabelValues(prefix, "stale_fill").Inc()
	}
	return nil
}
