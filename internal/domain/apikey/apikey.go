package apikey

import (
	"crypto/sha256"
	"encoding/base64"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// revealChars is the number of leading and trailing secret characters
	// shown in masked listings.
	revealChars = 8
	// minRevealLen is the shortest secret that is partially revealed. Shorter
	// secrets would leak too large a fraction of themselves.
	minRevealLen = 3 * revealChars

	fingerprintLen = 16

	// MaxWindowSeconds is the longest window whose duration fits in a
	// time.Duration.
	MaxWindowSeconds = math.MaxInt64 / int64(time.Second)
)

// Quota is the token-bucket refill policy of a key: Limit tokens per
// WindowSeconds, which is also the bucket capacity.
type Quota struct {
	Limit         int
	WindowSeconds int
}

// Validate reports ErrInvalidQuota when either field is non-positive or the
// window exceeds MaxWindowSeconds.
func (q Quota) Validate() error {
	if q.Limit <= 0 || q.WindowSeconds <= 0 || int64(q.WindowSeconds) > MaxWindowSeconds {
		return ErrInvalidQuota
	}
	return nil
}

// Window returns the refill window as a duration.
func (q Quota) Window() time.Duration {
	return time.Duration(q.WindowSeconds) * time.Second
}

// Bucket is the runtime token-bucket state of a key.
type Bucket struct {
	Tokens       decimal.Decimal
	LastRefillAt time.Time
}

// FullBucket returns a bucket holding q.Limit tokens, last refilled at now.
func FullBucket(q Quota, now time.Time) Bucket {
	return Bucket{
		Tokens:       decimal.NewFromInt(int64(q.Limit)),
		LastRefillAt: now,
	}
}

// Record is a stored API key.
type Record struct {
	Secret    string
	CreatedAt time.Time
	ExpiresAt time.Time
	Quota     Quota
	Bucket    Bucket
}

// Expired reports whether the key is inert at now.
func (r Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Fingerprint returns a short non-reversible identifier of the key, safe to
// put in logs.
func (r Record) Fingerprint() string {
	return Fingerprint(r.Secret)
}

// Masked is the listing view of a record. It never carries the full secret.
type Masked struct {
	Key             string
	CreatedAt       time.Time
	ExpiresAt       time.Time
	Quota           Quota
	TokensRemaining int
	Expired         bool
}

// Mask returns the listing view of r at now.
func (r Record) Mask(now time.Time) Masked {
	return Masked{
		Key:             MaskSecret(r.Secret),
		CreatedAt:       r.CreatedAt,
		ExpiresAt:       r.ExpiresAt,
		Quota:           r.Quota,
		TokensRemaining: int(r.Bucket.Tokens.Floor().IntPart()),
		Expired:         r.Expired(now),
	}
}

// MaskSecret reveals the first and last eight characters of secret and elides
// the middle. Secrets shorter than 24 characters are hidden completely.
func MaskSecret(secret string) string {
	if len(secret) < minRevealLen {
		return "********"
	}
	return secret[:revealChars] + "..." + secret[len(secret)-revealChars:]
}

// Fingerprint hashes secret into a short URL-safe identifier.
func Fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.RawURLEncoding.EncodeToString(sum[:])[:fingerprintLen]
}
