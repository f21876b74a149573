// Package authgate is the admission check every protected request passes:
// it resolves the presented API key, rejects missing, unknown and expired
// keys, and spends one token of the key's bucket.
package authgate

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/keygate/internal/domain/apikey"
	"github.com/xenking/keygate/internal/ratelimit"
	"github.com/xenking/keygate/internal/storage/keyfile"
)

// Admission is the result of a successful check.
type Admission struct {
	// KeyID is the key fingerprint, safe to log.
	KeyID    string
	Record   apikey.Record
	Decision ratelimit.Decision
}

// Gate validates credentials against the key store.
type Gate struct {
	store     *keyfile.Store
	limiter   *ratelimit.Limiter
	now       func() time.Time
	decisions metric.Int64Counter
}

// New creates a Gate. Decisions are counted on meter.
func New(store *keyfile.Store, limiter *ratelimit.Limiter, meter metric.Meter) (*Gate, error) {
	decisions, err := meter.Int64Counter("keygate.auth.decisions",
		metric.WithDescription("API key admission decisions by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create decisions counter")
	}
	return &Gate{
		store:     store,
		limiter:   limiter,
		now:       time.Now,
		decisions: decisions,
	}, nil
}

// Admit checks credential and spends one token on success.
//
// The cheap existence and expiry checks run on the current snapshot so that
// garbage credentials never queue for the store's write slot; the limiter
// repeats both inside its transaction.
func (g *Gate) Admit(ctx context.Context, credential string) (*Admission, error) {
	adm, err := g.admit(ctx, credential)
	g.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(err))))
	return adm, err
}

func (g *Gate) admit(ctx context.Context, credential string) (*Admission, error) {
	if credential == "" {
		return nil, apikey.ErrCredentialRequired
	}
	rec, ok := g.store.Get(credential)
	if !ok {
		return nil, apikey.ErrInvalidCredential
	}
	if rec.Expired(g.now()) {
		return nil, apikey.ErrCredentialExpired
	}

	rec, dec, err := g.limiter.Admit(ctx, credential)
	if err != nil {
		return nil, err
	}
	return &Admission{
		KeyID:    rec.Fingerprint(),
		Record:   rec,
		Decision: dec,
	}, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "admitted"
	case errors.Is(err, apikey.ErrCredentialRequired):
		return "missing"
	case errors.Is(err, apikey.ErrInvalidCredential):
		return "invalid"
	case errors.Is(err, apikey.ErrCredentialExpired):
		return "expired"
	default:
		return apikey.KindOf(err).String()
	}
}

type admissionKey struct{}

// WithAdmission attaches a to ctx.
func WithAdmission(ctx context.Context, a *Admission) context.Context {
	return context.WithValue(ctx, admissionKey{}, a)
}

// FromContext returns the admission attached by WithAdmission.
func FromContext(ctx context.Context) (*Admission, bool) {
	a, ok := ctx.Value(admissionKey{}).(*Admission)
	return a, ok && a != nil
}
