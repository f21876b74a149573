package keyfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/keygate/internal/domain/apikey"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newRecord(secret string) apikey.Record {
	q := apikey.Quota{Limit: 5, WindowSeconds: 60}
	return apikey.Record{
		Secret:    secret,
		CreatedAt: testNow,
		ExpiresAt: testNow.Add(365 * 24 * time.Hour),
		Quota:     q,
		Bucket:    apikey.FullBucket(q, testNow),
	}
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "data", "api-keys.json"))
	require.NoError(t, err)
	return s
}

func insert(t *testing.T, s *Store, recs ...apikey.Record) {
	t.Helper()
	err := s.Update(context.Background(), func(tx *Tx) error {
		for _, r := range recs {
			if err := tx.Insert(r); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestOpen_MissingFileInitializes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "api-keys.json")

	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"keys":[]}`, string(data))
}

func TestOpen_Unreadable(t *testing.T) {
	dir := t.TempDir()

	// A directory in place of the file is unreadable, not absent.
	_, err := Open(context.Background(), dir)
	require.Error(t, err)
}

func TestOpen_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api-keys.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"keys":[{"key":`), 0o600))

	_, err := Open(context.Background(), path)
	require.Error(t, err)
}

func TestOpen_DuplicateSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api-keys.json")
	body := `{"keys":[
		{"key":"dup","createdAt":"2025-01-01T00:00:00Z","expiresAt":"2026-01-01T00:00:00Z","rateLimit":{"requests":1,"duration":1}},
		{"key":"dup","createdAt":"2025-01-01T00:00:00Z","expiresAt":"2026-01-01T00:00:00Z","rateLimit":{"requests":1,"duration":1}}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	_, err := Open(context.Background(), path)
	require.ErrorIs(t, err, apikey.ErrDuplicateSecret)
}

func TestOpen_LegacyLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api-keys.json")
	body := `{"keys":[{
		"key":"legacy-secret",
		"createdAt":"2025-01-01T00:00:00.000Z",
		"expiresAt":"2026-01-01T00:00:00.000Z",
		"rateLimit":{"requests":100,"duration":60}
	}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	s, err := Open(context.Background(), path)
	require.NoError(t, err)

	r, ok := s.Get("legacy-secret")
	require.True(t, ok)
	assert.Equal(t, apikey.Quota{Limit: 100, WindowSeconds: 60}, r.Quota)
	assert.True(t, decimal.NewFromInt(100).Equal(r.Bucket.Tokens))
	assert.True(t, r.CreatedAt.Equal(r.Bucket.LastRefillAt))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	s := openTemp(t)
	r := newRecord("secret-1")
	r.Bucket.Tokens = decimal.RequireFromString("3.25")
	insert(t, s, r, newRecord("secret-2"))

	reopened, err := Open(context.Background(), s.Path())
	require.NoError(t, err)

	list := reopened.List()
	require.Len(t, list, 2)
	assert.Equal(t, "secret-1", list[0].Secret)
	assert.Equal(t, "secret-2", list[1].Secret)
	assert.True(t, decimal.RequireFromString("3.25").Equal(list[0].Bucket.Tokens))
	assert.True(t, testNow.Equal(list[0].CreatedAt))
	assert.Equal(t, r.Quota, list[0].Quota)
}

func TestStore_Lookup(t *testing.T) {
	s := openTemp(t)
	expired := newRecord("expired")
	expired.ExpiresAt = testNow.Add(-time.Minute)
	insert(t, s, newRecord("live"), expired)

	_, ok := s.Lookup("live", testNow)
	assert.True(t, ok)

	_, ok = s.Lookup("expired", testNow)
	assert.False(t, ok)
	_, ok = s.Get("expired")
	assert.True(t, ok, "raw get still sees expired records")

	_, ok = s.Lookup("missing", testNow)
	assert.False(t, ok)
}

func TestStore_Delete(t *testing.T) {
	s := openTemp(t)
	insert(t, s, newRecord("a"), newRecord("b"), newRecord("c"))

	err := s.Update(context.Background(), func(tx *Tx) error {
		require.True(t, tx.Delete("b"))
		require.False(t, tx.Delete("b"))
		return nil
	})
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Secret)
	assert.Equal(t, "c", list[1].Secret)

	c, ok := s.Get("c")
	require.True(t, ok)
	assert.Equal(t, "c", c.Secret)
}

func TestStore_InsertDuplicate(t *testing.T) {
	s := openTemp(t)
	insert(t, s, newRecord("a"))

	err := s.Update(context.Background(), func(tx *Tx) error {
		return tx.Insert(newRecord("a"))
	})
	require.ErrorIs(t, err, apikey.ErrDuplicateSecret)
	assert.Equal(t, 1, s.Len())
}

func TestStore_CallbackErrorDiscardsChanges(t *testing.T) {
	s := openTemp(t)
	insert(t, s, newRecord("a"))

	var writes atomic.Int32
	s.write = func(string, []byte, os.FileMode) error {
		writes.Add(1)
		return nil
	}

	errBoom := errors.New("boom")
	err := s.Update(context.Background(), func(tx *Tx) error {
		require.NoError(t, tx.Insert(newRecord("b")))
		require.True(t, tx.Delete("a"))
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	assert.Zero(t, writes.Load())
	_, ok := s.Get("a")
	assert.True(t, ok)
	_, ok = s.Get("b")
	assert.False(t, ok)
}

func TestStore_WriteFailureDiscardsChanges(t *testing.T) {
	s := openTemp(t)
	insert(t, s, newRecord("a"))

	s.write = func(string, []byte, os.FileMode) error {
		return errors.New("disk full")
	}

	err := s.Update(context.Background(), func(tx *Tx) error {
		require.True(t, tx.Delete("a"))
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist store")

	_, ok := s.Get("a")
	assert.True(t, ok, "failed write must not be visible")

	reopened, err := Open(context.Background(), s.Path())
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.Len())
}

func TestStore_NoChangeSkipsWrite(t *testing.T) {
	s := openTemp(t)
	insert(t, s, newRecord("a"))

	var writes atomic.Int32
	s.write = func(string, []byte, os.FileMode) error {
		writes.Add(1)
		return nil
	}

	err := s.Update(context.Background(), func(tx *Tx) error {
		_, ok := tx.Get("a")
		assert.True(t, ok)
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, writes.Load())
}

func TestStore_UpdateHonoursContext(t *testing.T) {
	s := openTemp(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Update(context.Background(), func(tx *Tx) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Update(ctx, func(tx *Tx) error {
		t.Error("callback must not run without exclusive access")
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)
}

func TestStore_StalledWriteTimesOutWaiters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api-keys.json")
	s, err := Open(context.Background(), path, WithWaitTimeout(50*time.Millisecond))
	require.NoError(t, err)

	writing := make(chan struct{})
	release := make(chan struct{})
	s.write = func(string, []byte, os.FileMode) error {
		close(writing)
		<-release
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- s.Update(context.Background(), func(tx *Tx) error {
			return tx.Insert(newRecord("slow"))
		})
	}()
	<-writing

	// A caller without a deadline still gets an answer.
	start := time.Now()
	err = s.Update(context.Background(), func(tx *Tx) error {
		t.Error("callback must not run while the write slot is held")
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)

	close(release)
	require.NoError(t, <-done)
	_, ok := s.Get("slow")
	assert.True(t, ok)
}

func TestStore_ConcurrentInsertsNoLostWrites(t *testing.T) {
	s := openTemp(t)
	const n = 64

	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			return s.Update(context.Background(), func(tx *Tx) error {
				return tx.Insert(newRecord(fmt.Sprintf("secret-%02d", i)))
			})
		})
	}
	require.NoError(t, g.Wait())

	reopened, err := Open(context.Background(), s.Path())
	require.NoError(t, err)
	assert.Equal(t, n, reopened.Len())
}

func TestStore_DeleteVisibleToConcurrentReaders(t *testing.T) {
	s := openTemp(t)
	insert(t, s, newRecord("victim"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for range 4 {
		g.Go(func() error {
			for gctx.Err() == nil {
				s.Get("victim")
				s.List()
			}
			return nil
		})
	}

	err := s.Update(context.Background(), func(tx *Tx) error {
		tx.Delete("victim")
		return nil
	})
	require.NoError(t, err)

	_, ok := s.Lookup("victim", testNow)
	assert.False(t, ok)

	cancel()
	require.NoError(t, g.Wait())
}
