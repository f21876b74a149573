package admin

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/keygate/internal/domain/apikey"
	"github.com/xenking/keygate/internal/storage/keyfile"
)

const testAdminKey = "admin-secret"

var defaultQuota = apikey.Quota{Limit: 100, WindowSeconds: 60}

func newController(t *testing.T) (*Controller, *keyfile.Store) {
	t.Helper()
	store, err := keyfile.Open(context.Background(), filepath.Join(t.TempDir(), "keys.json"))
	require.NoError(t, err)

	c, err := NewController(store, testAdminKey, Defaults{
		Quota: defaultQuota,
		TTL:   365 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return c, store
}

func testContext(t *testing.T) context.Context {
	return zctx.Base(context.Background(), zaptest.NewLogger(t))
}

func TestNewController_Validation(t *testing.T) {
	store, err := keyfile.Open(context.Background(), filepath.Join(t.TempDir(), "keys.json"))
	require.NoError(t, err)

	_, err = NewController(store, "", Defaults{Quota: defaultQuota, TTL: time.Hour})
	require.Error(t, err)

	_, err = NewController(store, "k", Defaults{Quota: apikey.Quota{}, TTL: time.Hour})
	require.ErrorIs(t, err, apikey.ErrInvalidQuota)

	_, err = NewController(store, "k", Defaults{Quota: defaultQuota})
	require.Error(t, err)
}

func TestAuthorize(t *testing.T) {
	c, _ := newController(t)

	assert.True(t, c.Authorize(testAdminKey))
	assert.False(t, c.Authorize(""))
	assert.False(t, c.Authorize("admin-secreT"))
	assert.False(t, c.Authorize(testAdminKey+"x"))
}

func TestCreate_Defaults(t *testing.T) {
	c, store := newController(t)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	created, err := c.Create(testContext(t), CreateRequest{})
	require.NoError(t, err)
	assert.Len(t, created.Secret, 2*apikey.SecretBytes)
	assert.Equal(t, defaultQuota, created.Record.Quota)
	assert.True(t, now.Add(365*24*time.Hour).Equal(created.Record.ExpiresAt))

	rec, ok := store.Lookup(created.Secret, now)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(100).Equal(rec.Bucket.Tokens), "new key starts with a full bucket")
}

func TestCreate_CustomQuota(t *testing.T) {
	c, store := newController(t)

	q := apikey.Quota{Limit: 5, WindowSeconds: 10}
	created, err := c.Create(testContext(t), CreateRequest{Quota: &q})
	require.NoError(t, err)

	rec, ok := store.Get(created.Secret)
	require.True(t, ok)
	assert.Equal(t, q, rec.Quota)
	assert.True(t, decimal.NewFromInt(5).Equal(rec.Bucket.Tokens))
}

func TestCreate_InvalidQuota(t *testing.T) {
	c, store := newController(t)

	_, err := c.Create(testContext(t), CreateRequest{Quota: &apikey.Quota{Limit: 0, WindowSeconds: 60}})
	require.ErrorIs(t, err, apikey.ErrInvalidQuota)
	assert.Equal(t, apikey.KindBadRequest, apikey.KindOf(err))
	assert.Zero(t, store.Len())
}

func TestCreate_RegeneratesOnCollision(t *testing.T) {
	c, store := newController(t)

	secrets := []string{"same-secret", "same-secret", "other-secret"}
	c.newSecret = func() (string, error) {
		s := secrets[0]
		secrets = secrets[1:]
		return s, nil
	}

	first, err := c.Create(testContext(t), CreateRequest{})
	require.NoError(t, err)
	second, err := c.Create(testContext(t), CreateRequest{})
	require.NoError(t, err)

	assert.Equal(t, "same-secret", first.Secret)
	assert.Equal(t, "other-secret", second.Secret)
	assert.Equal(t, 2, store.Len())
}

func TestCreate_SecretSourceFailure(t *testing.T) {
	c, store := newController(t)
	c.newSecret = func() (string, error) { return "", errors.New("entropy exhausted") }

	_, err := c.Create(testContext(t), CreateRequest{})
	require.Error(t, err)
	assert.Equal(t, apikey.KindInternal, apikey.KindOf(err))
	assert.Zero(t, store.Len())
}

func TestCreate_Concurrent(t *testing.T) {
	c, store := newController(t)
	const n = 32

	secrets := make([]string, n)
	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			created, err := c.Create(context.Background(), CreateRequest{})
			secrets[i] = created.Secret
			return err
		})
	}
	require.NoError(t, g.Wait())

	distinct := make(map[string]struct{}, n)
	for _, s := range secrets {
		distinct[s] = struct{}{}
	}
	assert.Len(t, distinct, n)

	reopened, err := keyfile.Open(context.Background(), store.Path())
	require.NoError(t, err)
	assert.Equal(t, n, reopened.Len())
}

func TestList_Masked(t *testing.T) {
	c, _ := newController(t)

	a, err := c.Create(testContext(t), CreateRequest{})
	require.NoError(t, err)
	b, err := c.Create(testContext(t), CreateRequest{})
	require.NoError(t, err)

	list := c.List(context.Background())
	require.Len(t, list, 2)

	for i, created := range []Created{a, b} {
		m := list[i]
		assert.True(t, strings.HasPrefix(m.Key, created.Secret[:8]))
		assert.True(t, strings.HasSuffix(m.Key, created.Secret[len(created.Secret)-8:]))
		assert.NotEqual(t, created.Secret, m.Key)
		assert.NotContains(t, m.Key, created.Secret)
		assert.Equal(t, defaultQuota, m.Quota)
		assert.False(t, m.Expired)
	}
}

func TestRevoke(t *testing.T) {
	c, store := newController(t)

	created, err := c.Create(testContext(t), CreateRequest{})
	require.NoError(t, err)

	require.NoError(t, c.Revoke(testContext(t), created.Secret))
	_, ok := store.Lookup(created.Secret, time.Now())
	assert.False(t, ok)

	err = c.Revoke(testContext(t), created.Secret)
	require.ErrorIs(t, err, apikey.ErrKeyNotFound)
	assert.Equal(t, apikey.KindNotFound, apikey.KindOf(err))
}

func TestSweep(t *testing.T) {
	c, store := newController(t)
	start := time.Now()
	c.now = func() time.Time { return start }

	keep, err := c.Create(testContext(t), CreateRequest{})
	require.NoError(t, err)

	c.defaults.TTL = time.Minute
	gone, err := c.Create(testContext(t), CreateRequest{})
	require.NoError(t, err)
	_, err = c.Create(testContext(t), CreateRequest{})
	require.NoError(t, err)

	c.now = func() time.Time { return start.Add(time.Hour) }
	removed, err := c.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, store.Len())

	_, ok := store.Get(gone.Secret)
	assert.False(t, ok)
	_, ok = store.Get(keep.Secret)
	assert.True(t, ok)

	removed, err = c.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, removed)
}
