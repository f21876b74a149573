package apikey

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// SecretBytes is the amount of entropy in a generated secret. The hex form is
// twice as long.
const SecretBytes = 32

// NewSecret returns a fresh hex-encoded secret read from crypto/rand.
func NewSecret() (string, error) {
	buf := make([]byte, SecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "read random bytes")
	}
	return hex.EncodeToString(buf), nil
}
