package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedThing struct {
	RefID string `json:"refId"`
	Name  string `json:"name"`
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(rdb)
	t.Cleanup(func() {
		SetClient(nil)
		_ = rdb.Close()
		mr.Close()
	})
	return mr
}

func TestAside_MissThenHit(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()
	key := RecordKey("thing", "ref-1")

	calls := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			calls++
			*dest = cachedThing{RefID: "ref-1", Name: "fresh"}
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, key, &first, time.Minute, fetch(&first)))
	assert.Equal(t, "fresh", first.Name)
	assert.True(t, mr.Exists(key))

	var second cachedThing
	require.NoError(t, Aside(ctx, key, &second, time.Minute, fetch(&second)))
	assert.Equal(t, "fresh", second.Name)
	assert.Equal(t, 1, calls)

	InvalidateRecord(ctx, "thing", "ref-1")
	assert.False(t, mr.Exists(key))

	var third cachedThing
	require.NoError(t, Aside(ctx, key, &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := setupMiniredis(t)
	key := RecordKey("thing", "missing")
	boom := errors.New("not found")

	var dest cachedThing
	err := Aside(context.Background(), key, &dest, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(key))
}

func TestAside_DegradesWhenRedisIsDown(t *testing.T) {
	mr := setupMiniredis(t)
	mr.SetError("LOADING")

	calls := 0
	var dest cachedThing
	err := Aside(context.Background(), RecordKey("thing", "x"), &dest, time.Minute, func() error {
		calls++
		dest.Name = "from db"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "from db", dest.Name)
}

func TestAside_NoClient(t *testing.T) {
	SetClient(nil)
	calls := 0
	var dest cachedThing
	require.NoError(t, Aside(context.Background(), "thing:ref:x", &dest, time.Minute, func() error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)
}

func TestTTLFor(t *testing.T) {
	assert.Equal(t, UserTTL, TTLFor("user"))
	assert.Equal(t, CategoryTTL, TTLFor("category"))
	assert.Equal(t, PostTTL, TTLFor("post"))
	assert.Equal(t, DefaultTTL, TTLFor("other"))
	assert.Equal(t, "post:ref:abc", RecordKey("post", "abc"))
}

func TestNewClient(t *testing.T) {
	rdb, err := NewClient("redis://localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, 2, rdb.Options().DB)
	_ = rdb.Close()

	_, err = NewClient("redis://%zz")
	assert.Error(t, err)
}

func TestAside_FillRacingInvalidationIsDropped(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()
	key := RecordKey("thing", "ref-race")

	var stale cachedThing
	err := Aside(ctx, key, &stale, time.Minute, func() error {
		stale = cachedThing{RefID: "ref-race", Name: "before delete"}
		// a writer commits and invalidates while the row is in flight
		Invalidate(ctx, key)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "before delete", stale.Name)
	assert.False(t, mr.Exists(key))
	assert.True(t, mr.Exists(VersionKey(key)))

	calls := 0
	var fresh cachedThing
	require.NoError(t, Aside(ctx, key, &fresh, time.Minute, func() error {
		calls++
		fresh = cachedThing{RefID: "ref-race", Name: "after delete"}
		return nil
	}))
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists(key))

	var cached cachedThing
	found, err := GetJSON(ctx, key, &cached)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "after delete", cached.Name)
}

func TestInvalidate_BumpsVersion(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()
	key := RecordKey("thing", "ref-ver")

	Invalidate(ctx, key)
	Invalidate(ctx, key)

	v, err := mr.Get(VersionKey(key))
	require.NoError(t, err)
	assert.Equal(t, "2", v)
	assert.Greater(t, mr.TTL(VersionKey(key)), time.Duration(0))
}
