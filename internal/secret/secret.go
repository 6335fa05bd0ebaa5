// Package secret protects small secrets with a key scoped to the current OS
// user. Windows uses DPAPI; other platforms use a per-user master key file
// and AES-256-GCM.
package secret

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// SaltSize is the number of random bytes generated per protected record.
const SaltSize = 16

// Sentinel errors for protection failures.
var (
	ErrEmptyInput   = errors.New("nothing to protect")
	ErrNoMasterKey  = errors.New("master key not found")
	ErrBadMasterKey = errors.New("master key unusable")
	ErrUnprotect    = errors.New("cannot unprotect data")
)

// Protector encrypts data for the current user. The salt is mixed into the
// protection so a record only opens with the salt it was sealed with.
type Protector interface {
	Protect(plaintext, salt []byte) ([]byte, error)
	Unprotect(ciphertext, salt []byte) ([]byte, error)
}

// NewSalt returns SaltSize bytes from the system CSPRNG.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}

// Zero overwrites b.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
