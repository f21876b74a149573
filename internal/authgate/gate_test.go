package authgate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/keygate/internal/domain/apikey"
	"github.com/xenking/keygate/internal/ratelimit"
	"github.com/xenking/keygate/internal/storage/keyfile"
)

func newGate(t *testing.T, recs ...apikey.Record) (*Gate, *keyfile.Store) {
	t.Helper()
	store, err := keyfile.Open(context.Background(), filepath.Join(t.TempDir(), "keys.json"))
	require.NoError(t, err)
	require.NoError(t, store.Update(context.Background(), func(tx *keyfile.Tx) error {
		for _, r := range recs {
			if err := tx.Insert(r); err != nil {
				return err
			}
		}
		return nil
	}))

	g, err := New(store, ratelimit.NewLimiter(store), noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	return g, store
}

func liveRecord(secret string, limit int) apikey.Record {
	now := time.Now()
	q := apikey.Quota{Limit: limit, WindowSeconds: 3600}
	return apikey.Record{
		Secret:    secret,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
		Quota:     q,
		Bucket:    apikey.FullBucket(q, now),
	}
}

func TestAdmit_MissingCredential(t *testing.T) {
	g, _ := newGate(t)

	_, err := g.Admit(context.Background(), "")
	require.ErrorIs(t, err, apikey.ErrCredentialRequired)
	assert.Equal(t, "credential required", err.Error())
}

func TestAdmit_UnknownCredential(t *testing.T) {
	g, _ := newGate(t, liveRecord("known", 1))

	_, err := g.Admit(context.Background(), "unknown")
	require.ErrorIs(t, err, apikey.ErrInvalidCredential)
}

func TestAdmit_ExpiredIsDistinctFromUnknown(t *testing.T) {
	expired := liveRecord("expired", 5)
	expired.CreatedAt = time.Now().Add(-2 * time.Hour)
	expired.ExpiresAt = time.Now().Add(-time.Hour)
	g, _ := newGate(t, expired)

	_, err := g.Admit(context.Background(), "expired")
	require.ErrorIs(t, err, apikey.ErrCredentialExpired)
	assert.NotErrorIs(t, err, apikey.ErrInvalidCredential)
	assert.Equal(t, apikey.KindUnauthorized, apikey.KindOf(err))
}

func TestAdmit_Admitted(t *testing.T) {
	g, store := newGate(t, liveRecord("good", 3))

	adm, err := g.Admit(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, apikey.Fingerprint("good"), adm.KeyID)
	assert.True(t, adm.Decision.Allowed)
	assert.Equal(t, 3, adm.Decision.Limit)
	assert.Equal(t, 2, adm.Decision.Remaining)

	stored, ok := store.Get("good")
	require.True(t, ok)
	assert.Equal(t, 2, stored.Mask(time.Now()).TokensRemaining)
}

func TestAdmit_RateLimited(t *testing.T) {
	g, _ := newGate(t, liveRecord("tight", 1))

	_, err := g.Admit(context.Background(), "tight")
	require.NoError(t, err)

	_, err = g.Admit(context.Background(), "tight")
	var limited *apikey.RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, 1, limited.Limit)
	assert.Equal(t, time.Hour, limited.RetryAfter)
}

func TestAdmit_RevokeTakesEffectImmediately(t *testing.T) {
	g, store := newGate(t, liveRecord("soon-gone", 10))

	_, err := g.Admit(context.Background(), "soon-gone")
	require.NoError(t, err)

	require.NoError(t, store.Update(context.Background(), func(tx *keyfile.Tx) error {
		tx.Delete("soon-gone")
		return nil
	}))

	_, err = g.Admit(context.Background(), "soon-gone")
	require.ErrorIs(t, err, apikey.ErrInvalidCredential)
}

func TestAdmissionContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	a := &Admission{KeyID: "abc"}
	got, ok := FromContext(WithAdmission(context.Background(), a))
	require.True(t, ok)
	assert.Same(t, a, got)
}
