package redisrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/tasklane/identity/sessions"
	"github.com/tasklane/identity/sessions/redisrepo"
)

func newRepo(t *testing.T) (*redisrepo.Repo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redisrepo.New(client), mr
}

func newSession(ttl time.Duration) *sessions.Session {
	now := time.Now()
	return &sessions.Session{
		Secret:    "opaque-secret",
		UserID:    "user-1",
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestSaveGetDelete(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	session := newSession(time.Hour)
	require.NoError(t, repo.Save(ctx, session))

	got, err := repo.Get(ctx, session.Secret)
	require.NoError(t, err)
	require.Equal(t, session.UserID, got.UserID)
	require.Equal(t, session.Secret, got.Secret)

	require.NoError(t, repo.Delete(ctx, session.Secret))

	_, err = repo.Get(ctx, session.Secret)
	require.ErrorIs(t, err, sessions.NotFoundErr)
}

func TestSaveRejectsExpiredSession(t *testing.T) {
	repo, _ := newRepo(t)
	require.Error(t, repo.Save(context.Background(), newSession(-time.Minute)))
}

func TestSessionsExpireWithTTL(t *testing.T) {
	repo, mr := newRepo(t)
	ctx := context.Background()

	session := newSession(time.Hour)
	require.NoError(t, repo.Save(ctx, session))

	mr.FastForward(time.Hour + time.Second)

	_, err := repo.Get(ctx, session.Secret)
	require.ErrorIs(t, err, sessions.NotFoundErr)
}

func TestGetUnknownSecret(t *testing.T) {
	repo, _ := newRepo(t)
	_, err := repo.Get(context.Background(), "never-saved")
	require.ErrorIs(t, err, sessions.NotFoundErr)
}
