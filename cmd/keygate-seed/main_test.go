package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/keygate/internal/domain/apikey"
	"github.com/xenking/keygate/internal/storage/keyfile"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "keys.json")
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := seedParams{
		storePath: path,
		secret:    "deploy-key-0123456789abcdef0123456789",
		quota:     apikey.Quota{Limit: 10, WindowSeconds: 60},
		ttl:       24 * time.Hour,
	}

	secret, created, err := seed(ctx, p, now)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, p.secret, secret)

	// Seeding again is a no-op.
	_, created, err = seed(ctx, p, now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, created)

	store, err := keyfile.Open(ctx, path)
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	rec, ok := store.Get(p.secret)
	require.True(t, ok)
	assert.True(t, rec.CreatedAt.Equal(now))
	assert.True(t, rec.ExpiresAt.Equal(now.Add(24*time.Hour)))
	assert.Equal(t, p.quota, rec.Quota)
	assert.True(t, rec.Bucket.Tokens.Equal(apikey.FullBucket(p.quota, now).Tokens))
}

func TestSeed_GeneratesSecret(t *testing.T) {
	p := seedParams{
		storePath: filepath.Join(t.TempDir(), "keys.json"),
		quota:     apikey.Quota{Limit: 1, WindowSeconds: 1},
		ttl:       time.Hour,
	}

	secret, created, err := seed(context.Background(), p, time.Now())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, secret, 2*apikey.SecretBytes)
}

func TestSeed_Invalid(t *testing.T) {
	p := seedParams{
		storePath: filepath.Join(t.TempDir(), "keys.json"),
		secret:    "k",
		quota:     apikey.Quota{Limit: 0, WindowSeconds: 60},
		ttl:       time.Hour,
	}
	_, _, err := seed(context.Background(), p, time.Now())
	require.ErrorIs(t, err, apikey.ErrInvalidQuota)

	p.quota.Limit = 1
	p.ttl = 0
	_, _, err = seed(context.Background(), p, time.Now())
	require.Error(t, err)
}
