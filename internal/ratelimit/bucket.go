// Package ratelimit implements per-key token-bucket admission.
package ratelimit

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/keygate/internal/domain/apikey"
)

var one = decimal.NewFromInt(1)

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed bool
	Limit   int
	// Remaining is the number of whole tokens left after this check.
	Remaining int
	// RetryAfter is how long until one token is available. Zero when allowed.
	RetryAfter time.Duration
	// ResetAfter is how long until the bucket is full again.
	ResetAfter time.Duration
}

// Take refills b according to q up to now and tries to spend one token.
//
// Refill is linear: limit tokens per window, capped at limit. On admission the
// returned bucket has one token less and LastRefillAt = now. On rejection b is
// returned unchanged, which yields the same future refill as storing the
// partially refilled bucket would.
func Take(b apikey.Bucket, q apikey.Quota, now time.Time) (apikey.Bucket, Decision, error) {
	if q.Validate() != nil {
		return b, Decision{}, apikey.ErrQuotaMisconfigured
	}

	limit := decimal.NewFromInt(int64(q.Limit))
	window := decimal.NewFromInt(int64(q.Window()))

	elapsed := now.Sub(b.LastRefillAt)
	if elapsed < 0 {
		elapsed = 0
	}
	tokens := b.Tokens.Add(decimal.NewFromInt(int64(elapsed)).Mul(limit).Div(window))
	tokens = decimal.Min(limit, decimal.Max(decimal.Zero, tokens))

	d := Decision{Limit: q.Limit}
	if tokens.LessThan(one) {
		d.RetryAfter = durationFor(one.Sub(tokens), limit, window)
		d.ResetAfter = durationFor(limit.Sub(tokens), limit, window)
		return b, d, nil
	}

	tokens = tokens.Sub(one)
	d.Allowed = true
	d.Remaining = int(tokens.Floor().IntPart())
	d.ResetAfter = durationFor(limit.Sub(tokens), limit, window)
	return apikey.Bucket{Tokens: tokens, LastRefillAt: now}, d, nil
}

// durationFor returns the time needed to refill n tokens, rounded up to a
// whole second.
func durationFor(n, limit, window decimal.Decimal) time.Duration {
	ns := n.Mul(window).Div(limit)
	secs := ns.Div(decimal.NewFromInt(int64(time.Second))).Ceil()
	return time.Duration(secs.IntPart()) * time.Second
}
