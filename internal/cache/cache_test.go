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
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(rdb)
	t.Cleanup(func() {
		SetClient(nil)
		_ = rdb.Close()
	})
	return mr
}

func TestAside_CachesAfterFirstFetch(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			calls++
			*dest = cachedThing{ID: 1, Name: "first"}
			return nil
		}
	}

	var a cachedThing
	require.NoError(t, Aside(ctx, UserKey(1), &a, UserTTL, fetch(&a)))
	var b cachedThing
	require.NoError(t, Aside(ctx, UserKey(1), &b, UserTTL, fetch(&b)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "first", b.Name)
	assert.True(t, mr.Exists("user:1"))

	InvalidateUser(ctx, 1)
	assert.False(t, mr.Exists("user:1"))
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := setupMiniredis(t)
	var dest cachedThing
	err := Aside(context.Background(), UserKey(2), &dest, UserTTL, func() error {
		return errors.New("db down")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists("user:2"))
}

func TestAside_WithoutRedis(t *testing.T) {
	SetClient(nil)
	calls := 0
	var dest cachedThing
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), UserKey(3), &dest, UserTTL, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestGetJSON_CorruptValueIsMiss(t *testing.T) {
	mr := setupMiniredis(t)
	require.NoError(t, mr.Set("user:4", "{not json"))

	var dest cachedThing
	found, err := GetJSON(context.Background(), UserKey(4), &dest)
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, mr.Exists("user:4"))
}

func TestInvalidatePublicFeed(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()
	require.NoError(t, SetJSON(ctx, PublicFeedKey(50, 0), []int{1}, PublicFeedTTL))
	require.NoError(t, SetJSON(ctx, PublicFeedKey(50, 50), []int{2}, PublicFeedTTL))
	require.NoError(t, SetJSON(ctx, UserKey(1), cachedThing{}, UserTTL))

	InvalidatePublicFeed(ctx)

	assert.False(t, mr.Exists(PublicFeedKey(50, 0)))
	assert.False(t, mr.Exists(PublicFeedKey(50, 50)))
	assert.True(t, mr.Exists(UserKey(1)))

	mr.FastForward(time.Hour)
	assert.False(t, mr.Exists(UserKey(1)))
}

func TestInitRedis_BadAddressLeavesNilClient(t *testing.T) {
	InitRedis("redis://%%bad")
	assert.Nil(t, GetClient())
}
