package secret

// Notes:
// - Round-trip tests run against the platform protector returned by
//   NewUserProtector, so Windows CI exercises DPAPI and other platforms the
//   key-file implementation.
// - The CSPRNG failure branches are not tested; crypto/rand does not fail on
//   supported platforms.

import (
	"bytes"
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// TestNewSalt - Salt generation
// ---------------------------------------------------------------------------

func TestNewSalt(t *testing.T) {
	t.Parallel()

	a, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt() error = %v", err)
	}
	b, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt() error = %v", err)
	}

	if len(a) != SaltSize {
		t.Errorf("len(salt) = %d, want %d", len(a), SaltSize)
	}
	if bytes.Equal(a, b) {
		t.Error("two salts are identical")
	}
}

func TestZero(t *testing.T) {
	t.Parallel()

	b := []byte("sk-live-secret")
	Zero(b)
	if !bytes.Equal(b, make([]byte, len(b))) {
		t.Errorf("Zero() left %q", b)
	}
}

// ---------------------------------------------------------------------------
// TestUserProtector - Platform protector round trips
// ---------------------------------------------------------------------------

func TestUserProtector_RoundTrip(t *testing.T) {
	t.Parallel()

	p := NewUserProtector(t.TempDir())
	salt, _ := NewSalt()
	plaintext := []byte("sk-test-1234567890")

	sealed, err := p.Protect(plaintext, salt)
	if err != nil {
		t.Fatalf("Protect() error = %v", err)
	}
	if bytes.Contains(sealed, plaintext) {
		t.Fatal("sealed data contains the plaintext")
	}

	got, err := p.Unprotect(sealed, salt)
	if err != nil {
		t.Fatalf("Unprotect() error = %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Unprotect() = %q, want %q", got, plaintext)
	}
}

func TestUserProtector_Failures(t *testing.T) {
	t.Parallel()

	p := NewUserProtector(t.TempDir())
	salt, _ := NewSalt()

	sealed, err := p.Protect([]byte("sk-test"), salt)
	if err != nil {
		t.Fatalf("Protect() error = %v", err)
	}

	t.Run("empty plaintext", func(t *testing.T) {
		t.Parallel()

		if _, err := p.Protect(nil, salt); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Protect(nil) error = %v, want ErrEmptyInput", err)
		}
	})

	t.Run("wrong salt", func(t *testing.T) {
		t.Parallel()

		other, _ := NewSalt()
		if _, err := p.Unprotect(sealed, other); err == nil {
			t.Error("Unprotect() with a different salt succeeded")
		}
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		t.Parallel()

		tampered := bytes.Clone(sealed)
		tampered[len(tampered)-1] ^= 0xFF
		if _, err := p.Unprotect(tampered, salt); err == nil {
			t.Error("Unprotect() of tampered data succeeded")
		}
	})

	t.Run("empty ciphertext", func(t *testing.T) {
		t.Parallel()

		if _, err := p.Unprotect(nil, salt); !errors.Is(err, ErrUnprotect) {
			t.Errorf("Unprotect(nil) error = %v, want ErrUnprotect", err)
		}
	})
}
