// Package keyfile implements the API key store on top of a single JSON file.
//
// The whole collection is kept in memory as an immutable snapshot. Readers load
// the current snapshot without locking. Writers run one at a time through
// Update: the transaction works on a private copy, the file is replaced
// atomically, and only then is the new snapshot published. A caller that gets
// a nil error from Update knows the change is durable and visible to every
// subsequent read.
package keyfile

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/moby/sys/atomicwriter"

	"github.com/xenking/keygate/internal/domain/apikey"
)

const (
	filePerm = 0o600

	// DefaultWaitTimeout bounds how long Update waits for the write slot when
	// no WithWaitTimeout option is given.
	DefaultWaitTimeout = 5 * time.Second
)

// Option configures a Store.
type Option func(s *Store)

// WithWaitTimeout bounds how long Update waits behind another transaction,
// on top of the caller's context. Zero or negative leaves only the caller's
// context in charge.
func WithWaitTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.waitTimeout = d
	}
}

// Store is the durable, concurrency-safe collection of API key records.
type Store struct {
	path        string
	write       func(name string, data []byte, perm os.FileMode) error
	waitTimeout time.Duration

	// slot serializes transactions. Holding it is the exclusive-access section.
	slot chan struct{}
	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	records []apikey.Record
	index   map[string]int
}

func newSnapshot(records []apikey.Record) (*snapshot, error) {
	index := make(map[string]int, len(records))
	for i, r := range records {
		if _, dup := index[r.Secret]; dup {
			return nil, errors.Wrapf(apikey.ErrDuplicateSecret, "record %d", i)
		}
		index[r.Secret] = i
	}
	return &snapshot{records: records, index: index}, nil
}

// Open loads the store from path. A missing file is initialized as an empty
// collection and written immediately; any other read or parse failure is
// returned.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:        path,
		write:       atomicwriter.WriteFile,
		waitTimeout: DefaultWaitTimeout,
		slot:        make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, errors.Wrap(err, "create store directory")
		}
		s.snap.Store(&snapshot{index: map[string]int{}})
		if err := s.Update(ctx, func(tx *Tx) error {
			tx.touch()
			return nil
		}); err != nil {
			return nil, errors.Wrap(err, "initialize store")
		}
		return s, nil
	case err != nil:
		return nil, errors.Wrap(err, "read store")
	}

	records, err := decodeRecords(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	snap, err := newSnapshot(records)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	s.snap.Store(snap)
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the record for secret regardless of expiration.
func (s *Store) Get(secret string) (apikey.Record, bool) {
	snap := s.snap.Load()
	i, ok := snap.index[secret]
	if !ok {
		return apikey.Record{}, false
	}
	return snap.records[i], true
}

// Lookup returns the record for secret if it exists and has not expired at now.
func (s *Store) Lookup(secret string, now time.Time) (apikey.Record, bool) {
	r, ok := s.Get(secret)
	if !ok || r.Expired(now) {
		return apikey.Record{}, false
	}
	return r, true
}

// List returns a copy of all records in insertion order.
func (s *Store) List() []apikey.Record {
	snap := s.snap.Load()
	out := make([]apikey.Record, len(snap.records))
	copy(out, snap.records)
	return out
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	return len(s.snap.Load().records)
}

// Update runs fn with exclusive access to the collection. When fn returns nil
// and changed something, the new collection is written to disk and published.
// When fn or the write fails, nothing changes. Waiting for exclusive access is
// bounded by ctx and by the store's wait timeout, so a stalled write fails
// the transactions queued behind it instead of blocking them.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer func() { <-s.slot }()

	tx := &Tx{base: s.snap.Load()}
	tx.records = tx.base.records
	tx.index = tx.base.index

	if err := fn(tx); err != nil {
		return err
	}
	if !tx.dirty {
		return nil
	}

	if err := s.write(s.path, encodeRecords(tx.records), filePerm); err != nil {
		return errors.Wrap(err, "persist store")
	}
	s.snap.Store(&snapshot{records: tx.records, index: tx.index})
	return nil
}

func (s *Store) acquire(ctx context.Context) error {
	// Fast path: an idle store never starts a timer.
	select {
	case s.slot <- struct{}{}:
		return nil
	default:
	}
	if s.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.waitTimeout)
		defer cancel()
	}
	select {
	case s.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "acquire store")
	}
}
