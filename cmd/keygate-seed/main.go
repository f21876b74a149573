// Command keygate-seed provisions API keys into a keys file before the
// gateway starts, for deployments that need a known key on first boot.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/keygate/internal/domain/apikey"
	"github.com/xenking/keygate/internal/storage/keyfile"
)

type seedParams struct {
	storePath string
	secret    string
	quota     apikey.Quota
	ttl       time.Duration
}

func main() {
	var (
		p      seedParams
		window time.Duration
	)

	flag.StringVar(&p.storePath, "store", "", "API keys file (or API_KEYS_FILE env)")
	flag.StringVar(&p.secret, "key", "", "API key to seed (or KEYGATE_SEED_API_KEY env); generated when empty")
	flag.IntVar(&p.quota.Limit, "limit", 100, "requests per window")
	flag.DurationVar(&window, "window", time.Minute, "quota window, whole seconds")
	flag.DurationVar(&p.ttl, "ttl", 365*24*time.Hour, "key lifetime")
	flag.Parse()

	if p.storePath == "" {
		p.storePath = os.Getenv("API_KEYS_FILE")
	}
	if p.storePath == "" {
		p.storePath = "data/api-keys.json"
	}
	if p.secret == "" {
		p.secret = os.Getenv("KEYGATE_SEED_API_KEY")
	}
	if window%time.Second != 0 {
		slog.Error("window must be a whole number of seconds", slog.Duration("window", window))
		os.Exit(1)
	}
	p.quota.WindowSeconds = int(window / time.Second)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	secret, created, err := seed(ctx, p, time.Now())
	if err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if !created {
		slog.Info("API key already present", slog.String("key", apikey.MaskSecret(secret)))
		return
	}

	slog.Info("seeded API key",
		slog.String("key_id", apikey.Fingerprint(secret)),
		slog.String("store", p.storePath),
	)
	// The secret is printed once, on stdout, so it can be captured by scripts.
	fmt.Println(secret)
}

// seed inserts the key described by p unless a key with the same secret is
// already stored. It reports the secret and whether a record was written.
func seed(ctx context.Context, p seedParams, now time.Time) (string, bool, error) {
	if err := p.quota.Validate(); err != nil {
		return "", false, err
	}
	if p.ttl <= 0 {
		return "", false, errors.New("ttl must be positive")
	}

	secret := p.secret
	if secret == "" {
		var err error
		if secret, err = apikey.NewSecret(); err != nil {
			return "", false, err
		}
	}

	store, err := keyfile.Open(ctx, p.storePath)
	if err != nil {
		return "", false, errors.Wrap(err, "open key store")
	}

	created := false
	err = store.Update(ctx, func(tx *keyfile.Tx) error {
		if _, ok := tx.Get(secret); ok {
			return nil
		}
		created = true
		return tx.Insert(apikey.Record{
			Secret:    secret,
			CreatedAt: now,
			ExpiresAt: now.Add(p.ttl),
			Quota:     p.quota,
			Bucket:    apikey.FullBucket(p.quota, now),
		})
	})
	if err != nil {
		return "", false, errors.Wrap(err, "seed api key")
	}
	return secret, created, nil
}
