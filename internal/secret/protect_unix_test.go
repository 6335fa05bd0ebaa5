//go:build !windows

package secret

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// ---------------------------------------------------------------------------
// TestKeyFileProtector - Master key handling
// ---------------------------------------------------------------------------

func TestKeyFileProtector_CreatesPrivateMasterKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := NewUserProtector(dir).(*KeyFileProtector)
	salt, _ := NewSalt()

	if _, err := p.Protect([]byte("sk-test"), salt); err != nil {
		t.Fatalf("Protect() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, MasterKeyFile))
	if err != nil {
		t.Fatalf("master key not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("master key mode = %o, want 600", perm)
	}
	if info.Size() != masterKeySize {
		t.Errorf("master key size = %d, want %d", info.Size(), masterKeySize)
	}
}

func TestKeyFileProtector_UnprotectWithoutMasterKey(t *testing.T) {
	t.Parallel()

	p := NewUserProtector(t.TempDir())
	salt, _ := NewSalt()

	_, err := p.Unprotect(make([]byte, 64), salt)
	if !errors.Is(err, ErrNoMasterKey) {
		t.Errorf("Unprotect() error = %v, want ErrNoMasterKey", err)
	}
}

func TestKeyFileProtector_RejectsBadMasterKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content []byte
		mode    os.FileMode
	}{
		{name: "group readable", content: make([]byte, masterKeySize), mode: 0o640},
		{name: "wrong length", content: []byte("short"), mode: 0o600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := filepath.Join(dir, MasterKeyFile)
			if err := os.WriteFile(path, tt.content, tt.mode); err != nil {
				t.Fatal(err)
			}
			if err := os.Chmod(path, tt.mode); err != nil {
				t.Fatal(err)
			}

			salt, _ := NewSalt()
			_, err := NewUserProtector(dir).Protect([]byte("sk-test"), salt)
			if !errors.Is(err, ErrBadMasterKey) {
				t.Errorf("Protect() error = %v, want ErrBadMasterKey", err)
			}
		})
	}
}

func TestKeyFileProtector_LostMasterKeyInvalidatesRecords(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := NewUserProtector(dir)
	salt, _ := NewSalt()

	sealed, err := p.Protect([]byte("sk-test"), salt)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(dir, MasterKeyFile)); err != nil {
		t.Fatal(err)
	}
	// A new master key is minted by the next Protect.
	if _, err := p.Protect([]byte("other"), salt); err != nil {
		t.Fatal(err)
	}

	if _, err := p.Unprotect(sealed, salt); !errors.Is(err, ErrUnprotect) {
		t.Errorf("Unprotect() error = %v, want ErrUnprotect", err)
	}
}
