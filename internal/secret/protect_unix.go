//go:build !windows

package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"github.com/alnah/go-umledit/internal/fileutil"
)

// Key derivation parameters.
const (
	MasterKeyFile = "vault.key"
	masterKeySize = 32
	kdfIterations = 100_000
	nonceSize     = 12
)

// KeyFileProtector derives a per-record AES-256-GCM key from a random master
// key stored in a file only the current user can read.
type KeyFileProtector struct {
	path string
	mu   sync.Mutex
}

// NewUserProtector returns the platform protector, keeping any key material
// under dir.
func NewUserProtector(dir string) Protector {
	return &KeyFileProtector{path: filepath.Join(dir, MasterKeyFile)}
}

// Path returns the master key location.
func (p *KeyFileProtector) Path() string { return p.path }

// Protect seals plaintext. The master key is created on first use.
func (p *KeyFileProtector) Protect(plaintext, salt []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, ErrEmptyInput
	}

	master, err := p.masterKey(true)
	if err != nil {
		return nil, err
	}
	defer Zero(master)

	gcm, err := newGCM(master, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, salt), nil
}

// Unprotect opens data sealed by Protect with the same salt.
func (p *KeyFileProtector) Unprotect(ciphertext, salt []byte) ([]byte, error) {
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrUnprotect)
	}

	master, err := p.masterKey(false)
	if err != nil {
		return nil, err
	}
	defer Zero(master)

	gcm, err := newGCM(master, salt)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnprotect, err)
	}
	return plaintext, nil
}

func (p *KeyFileProtector) masterKey(create bool) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	info, err := os.Stat(p.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if !create {
			return nil, ErrNoMasterKey
		}
		return p.createMasterKey()
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrBadMasterKey, err)
	}

	if info.Mode().Perm()&0o077 != 0 {
		return nil, fmt.Errorf("%w: %s is accessible by other users (mode %o)", ErrBadMasterKey, p.path, info.Mode().Perm())
	}

	key, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMasterKey, err)
	}
	if len(key) != masterKeySize {
		Zero(key)
		return nil, fmt.Errorf("%w: wrong length", ErrBadMasterKey)
	}
	return key, nil
}

func (p *KeyFileProtector) createMasterKey() ([]byte, error) {
	key := make([]byte, masterKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating master key: %w", err)
	}
	if err := fileutil.AtomicWriteFile(p.path, key, 0o600, 0o700); err != nil {
		Zero(key)
		return nil, fmt.Errorf("writing master key: %w", err)
	}
	return key, nil
}

func newGCM(master, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(master, salt, kdfIterations, 32, sha256.New)
	defer Zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
