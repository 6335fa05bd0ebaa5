package umledit

// Notes:
// - Tests run against the platform protector (DPAPI on Windows, key file
//   elsewhere) except where a stub protector isolates record parsing.
// - The plaintext-on-disk check scans the whole data directory, including
//   the master key file on non-Windows platforms.

import (
	"bytes"
	"encoding/binary"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

const testAPIKey = "sk-test-0123456789abcdef"

func newTestVault(t *testing.T, opts ...VaultOption) (*Vault, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.dat")
	return NewVault(path, opts...), path
}

// xorProtector is a reversible stand-in used to test record framing.
type xorProtector struct{}

func (xorProtector) Protect(p, salt []byte) ([]byte, error) {
	out := make([]byte, len(p))
	for i := range p {
		out[i] = p[i] ^ salt[i%len(salt)]
	}
	return out, nil
}

func (x xorProtector) Unprotect(c, salt []byte) ([]byte, error) {
	return x.Protect(c, salt)
}

// ---------------------------------------------------------------------------
// TestVault_StoreRetrieve - Round trips
// ---------------------------------------------------------------------------

func TestVault_StoreRetrieve(t *testing.T) {
	t.Parallel()

	v, path := newTestVault(t)

	if v.Exists() {
		t.Fatal("Exists() = true before Store")
	}
	if got, ok := v.Retrieve(); ok || got != "" {
		t.Fatalf("Retrieve() before Store = %q, %v", got, ok)
	}

	if err := v.Store(testAPIKey); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if !v.Exists() {
		t.Error("Exists() = false after Store")
	}

	got, ok := v.Retrieve()
	if !ok || got != testAPIKey {
		t.Errorf("Retrieve() = %q, %v; want stored key", got, ok)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("record mode = %o, want 600", perm)
		}
	}
}

func TestVault_StoreOverwrites(t *testing.T) {
	t.Parallel()

	v, path := newTestVault(t)
	if err := v.Store("first-key"); err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(path)

	if err := v.Store("second-key"); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(path)

	if got, _ := v.Retrieve(); got != "second-key" {
		t.Errorf("Retrieve() = %q, want second-key", got)
	}
	if bytes.Equal(first[4:4+16], second[4:4+16]) {
		t.Error("salt reused across stores")
	}
}

func TestVault_PlaintextNeverOnDisk(t *testing.T) {
	t.Parallel()

	v, path := newTestVault(t)
	if err := v.Store(testAPIKey); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(filepath.Dir(path), e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		if bytes.Contains(data, []byte(testAPIKey)) {
			t.Errorf("%s contains the plaintext key", e.Name())
		}
	}
}

func TestVault_SecretNeverLogged(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	v, path := newTestVault(t, WithVaultLogger(logger))

	if err := v.Store(testAPIKey); err != nil {
		t.Fatal(err)
	}
	_, _ = v.Retrieve()
	// Corrupt the record so the failure path logs too.
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0o600); err != nil {
		t.Fatal(err)
	}
	_, _ = v.Retrieve()

	if strings.Contains(logs.String(), testAPIKey) {
		t.Errorf("log output contains the key:\n%s", logs.String())
	}
}

// ---------------------------------------------------------------------------
// TestVault_Store_Validation - Blank input
// ---------------------------------------------------------------------------

func TestVault_Store_Blank(t *testing.T) {
	t.Parallel()

	for _, value := range []string{"", "   ", "\n\t"} {
		v, path := newTestVault(t)
		if err := v.Store(value); !errors.Is(err, ErrBlankSecret) {
			t.Errorf("Store(%q) error = %v, want ErrBlankSecret", value, err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("Store(%q) wrote a file", value)
		}
	}
}

// ---------------------------------------------------------------------------
// TestVault_Retrieve_Corrupt - Damaged records read as absent
// ---------------------------------------------------------------------------

func TestVault_Retrieve_Corrupt(t *testing.T) {
	t.Parallel()

	le := func(n int32) []byte {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(n))
		return b
	}
	concat := func(parts ...[]byte) []byte { return bytes.Join(parts, nil) }

	tests := []struct {
		name   string
		record func(valid []byte) []byte
	}{
		{name: "empty file", record: func([]byte) []byte { return nil }},
		{name: "truncated length", record: func([]byte) []byte { return []byte{16, 0} }},
		{name: "negative salt length", record: func([]byte) []byte { return concat(le(-1), make([]byte, 32)) }},
		{name: "salt length past end", record: func([]byte) []byte { return concat(le(1000), make([]byte, 16)) }},
		{name: "missing cipher length", record: func([]byte) []byte { return concat(le(2), []byte{1, 2}) }},
		{name: "cipher length past end", record: func([]byte) []byte { return concat(le(1), []byte{1}, le(99), []byte{1}) }},
		{name: "flipped last byte", record: func(valid []byte) []byte {
			out := bytes.Clone(valid)
			out[len(out)-1] ^= 0xFF
			return out
		}},
		{name: "flipped salt byte", record: func(valid []byte) []byte {
			out := bytes.Clone(valid)
			out[5] ^= 0xFF
			return out
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, path := newTestVault(t)
			if err := v.Store(testAPIKey); err != nil {
				t.Fatal(err)
			}
			valid, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}

			if err := os.WriteFile(path, tt.record(valid), 0o600); err != nil {
				t.Fatal(err)
			}

			if got, ok := v.Retrieve(); ok || got != "" {
				t.Errorf("Retrieve() = %q, %v; want absent", got, ok)
			}
		})
	}
}

func TestVault_RecordLayout(t *testing.T) {
	t.Parallel()

	v, path := newTestVault(t, WithProtector(xorProtector{}))
	if err := v.Store("abc"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := int32(binary.LittleEndian.Uint32(data[:4])); got != 16 {
		t.Fatalf("salt length = %d, want 16", got)
	}
	if got := int32(binary.LittleEndian.Uint32(data[20:24])); got != 3 {
		t.Fatalf("cipher length = %d, want 3", got)
	}
	if len(data) != 4+16+4+3 {
		t.Errorf("record length = %d, want %d", len(data), 27)
	}

	if got, ok := v.Retrieve(); !ok || got != "abc" {
		t.Errorf("Retrieve() = %q, %v", got, ok)
	}
}

// ---------------------------------------------------------------------------
// TestVault_Delete - Removal
// ---------------------------------------------------------------------------

func TestVault_Delete(t *testing.T) {
	t.Parallel()

	v, _ := newTestVault(t)
	if err := v.Store(testAPIKey); err != nil {
		t.Fatal(err)
	}

	if err := v.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if v.Exists() {
		t.Error("Exists() = true after Delete")
	}
	if _, ok := v.Retrieve(); ok {
		t.Error("Retrieve() succeeded after Delete")
	}
	if err := v.Delete(); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}
}
