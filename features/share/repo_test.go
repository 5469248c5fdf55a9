package share_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"citeweb/features/share"
	"citeweb/internal/apperr"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisRepo_SaveAndGet(t *testing.T) {
	mr, client := setupRedis(t)
	repo := share.NewRedisRepo(client)
	ctx := context.Background()

	err := repo.Save(ctx, "abc", []byte(`{"answer":"x"}`), time.Hour)
	require.NoError(t, err)

	assert.True(t, mr.Exists("share:abc"))
	assert.Equal(t, time.Hour, mr.TTL("share:abc"))

	data, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":"x"}`, string(data))
}

func TestRedisRepo_Expiry(t *testing.T) {
	mr, client := setupRedis(t)
	repo := share.NewRedisRepo(client)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "abc", []byte(`1`), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := repo.Get(ctx, "abc")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRedisRepo_GetMissing(t *testing.T) {
	_, client := setupRedis(t)
	repo := share.NewRedisRepo(client)

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRedisRepo_ConnectionError(t *testing.T) {
	mr, client := setupRedis(t)
	repo := share.NewRedisRepo(client)
	mr.Close()

	err := repo.Save(context.Background(), "abc", []byte(`1`), time.Minute)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
}
