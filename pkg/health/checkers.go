package health

import (
	"context"
	"os"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck fails when more than threshold goroutines are running,
// which for a request-per-goroutine server means requests are piling up.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// DirWritableCheck fails when a file cannot be created in dir. The key store
// replaces its file through a sibling temporary file, so this is the
// condition for admin mutations and bucket updates to succeed.
func DirWritableCheck(dir string) CheckFunc {
	return func(context.Context) error {
		f, err := os.CreateTemp(dir, ".probe-*")
		if err != nil {
			return errors.Wrap(err, "create probe file")
		}
		name := f.Name()
		if err := f.Close(); err != nil {
			_ = os.Remove(name)
			return errors.Wrap(err, "close probe file")
		}
		if err := os.Remove(name); err != nil {
			return errors.Wrap(err, "remove probe file")
		}
		return nil
	}
}
