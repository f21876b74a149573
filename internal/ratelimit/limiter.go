package ratelimit

import (
	"context"
	"time"

	"github.com/xenking/keygate/internal/domain/apikey"
	"github.com/xenking/keygate/internal/storage/keyfile"
)

// Limiter applies Take to stored records. Refill and spend happen inside one
// store transaction, so two concurrent requests can never spend the same
// token, and a key revoked or expired in the meantime is rejected.
type Limiter struct {
	store *keyfile.Store
	now   func() time.Time
}

// NewLimiter creates a Limiter over store.
func NewLimiter(store *keyfile.Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// Admit spends one token of the key identified by secret. It returns the
// updated record and the decision. A rejected request yields an
// *apikey.RateLimitedError together with the decision.
func (l *Limiter) Admit(ctx context.Context, secret string) (apikey.Record, Decision, error) {
	var (
		rec apikey.Record
		dec Decision
	)
	err := l.store.Update(ctx, func(tx *keyfile.Tx) error {
		r, ok := tx.Get(secret)
		if !ok {
			return apikey.ErrInvalidCredential
		}
		now := l.now()
		if r.Expired(now) {
			return apikey.ErrCredentialExpired
		}

		bucket, d, err := Take(r.Bucket, r.Quota, now)
		if err != nil {
			return err
		}
		dec = d
		if !d.Allowed {
			return &apikey.RateLimitedError{Limit: d.Limit, RetryAfter: d.RetryAfter}
		}

		r.Bucket = bucket
		tx.Replace(r)
		rec = r
		return nil
	})
	return rec, dec, err
}
