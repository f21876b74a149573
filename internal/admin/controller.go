// Package admin implements privileged key management: create, list, revoke
// and sweep of expired keys. It is the only writer of key records apart from
// bucket updates made by the rate limiter.
package admin

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/keygate/internal/domain/apikey"
	"github.com/xenking/keygate/internal/storage/keyfile"
)

// secretAttempts bounds regeneration on a secret collision, which with 256
// bits of entropy only happens with a broken random source.
const secretAttempts = 3

// Defaults holds the policy applied to keys created without explicit values.
type Defaults struct {
	Quota apikey.Quota
	TTL   time.Duration
}

// CreateRequest holds the input of Create. A nil Quota selects the default.
type CreateRequest struct {
	Quota *apikey.Quota
}

// Created is the result of Create. Secret is returned only here.
type Created struct {
	Secret string
	Record apikey.Record
}

// Controller implements the admin operations.
type Controller struct {
	store     *keyfile.Store
	defaults  Defaults
	digest    [sha256.Size]byte
	now       func() time.Time
	newSecret func() (string, error)
}

// NewController creates a Controller guarded by credential.
func NewController(store *keyfile.Store, credential string, defaults Defaults) (*Controller, error) {
	if credential == "" {
		return nil, errors.New("admin credential is empty")
	}
	if err := defaults.Quota.Validate(); err != nil {
		return nil, errors.Wrap(err, "default quota")
	}
	if defaults.TTL <= 0 {
		return nil, errors.New("default key TTL must be positive")
	}
	return &Controller{
		store:     store,
		defaults:  defaults,
		digest:    sha256.Sum256([]byte(credential)),
		now:       time.Now,
		newSecret: apikey.NewSecret,
	}, nil
}

// Authorize reports whether presented equals the admin credential. Digests
// are compared so timing does not depend on the presented length.
func (c *Controller) Authorize(presented string) bool {
	if presented == "" {
		return false
	}
	got := sha256.Sum256([]byte(presented))
	return subtle.ConstantTimeCompare(got[:], c.digest[:]) == 1
}

// Create issues a new key with a full bucket.
func (c *Controller) Create(ctx context.Context, req CreateRequest) (Created, error) {
	quota := c.defaults.Quota
	if req.Quota != nil {
		if err := req.Quota.Validate(); err != nil {
			return Created{}, err
		}
		quota = *req.Quota
	}

	var rec apikey.Record
	err := c.store.Update(ctx, func(tx *keyfile.Tx) error {
		now := c.now()
		for range secretAttempts {
			secret, err := c.newSecret()
			if err != nil {
				return errors.Wrap(err, "generate secret")
			}
			rec = apikey.Record{
				Secret:    secret,
				CreatedAt: now,
				ExpiresAt: now.Add(c.defaults.TTL),
				Quota:     quota,
				Bucket:    apikey.FullBucket(quota, now),
			}
			err = tx.Insert(rec)
			if errors.Is(err, apikey.ErrDuplicateSecret) {
				continue
			}
			return err
		}
		return errors.Wrap(apikey.ErrDuplicateSecret, "generate secret")
	})
	if err != nil {
		return Created{}, errors.Wrap(err, "create key")
	}

	zctx.From(ctx).Info("API key created",
		zap.String("key_id", rec.Fingerprint()),
		zap.Int("limit", quota.Limit),
		zap.Int("window_seconds", quota.WindowSeconds),
		zap.Time("expires_at", rec.ExpiresAt),
	)
	return Created{Secret: rec.Secret, Record: rec}, nil
}

// List returns all keys in creation order with secrets masked.
func (c *Controller) List(_ context.Context) []apikey.Masked {
	records := c.store.List()
	now := c.now()
	out := make([]apikey.Masked, len(records))
	for i, r := range records {
		out[i] = r.Mask(now)
	}
	return out
}

// Revoke deletes the key with the given secret. It returns
// apikey.ErrKeyNotFound when there is none.
func (c *Controller) Revoke(ctx context.Context, secret string) error {
	err := c.store.Update(ctx, func(tx *keyfile.Tx) error {
		if !tx.Delete(secret) {
			return apikey.ErrKeyNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apikey.ErrKeyNotFound) {
			return err
		}
		return errors.Wrap(err, "revoke key")
	}
	zctx.From(ctx).Info("API key revoked", zap.String("key_id", apikey.Fingerprint(secret)))
	return nil
}

// Sweep deletes expired keys and returns how many were removed. Expired keys
// are already rejected at admission, so this only reclaims space.
func (c *Controller) Sweep(ctx context.Context) (int, error) {
	var removed int
	err := c.store.Update(ctx, func(tx *keyfile.Tx) error {
		now := c.now()
		before := tx.Len()
		var expired []string
		for _, r := range tx.Records() {
			if r.Expired(now) {
				expired = append(expired, r.Secret)
			}
		}
		for _, s := range expired {
			tx.Delete(s)
		}
		removed = before - tx.Len()
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "sweep expired keys")
	}
	return removed, nil
}
