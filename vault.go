package umledit

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-umledit/internal/fileutil"
	"github.com/alnah/go-umledit/internal/secret"
)

// Vault file permissions.
const (
	secretFilePerm = 0o600
	secretDirPerm  = 0o700
)

// errCorruptRecord marks a secret file that does not parse.
var errCorruptRecord = errors.New("corrupt secret record")

// Protector seals the vault record for the current OS user.
type Protector = secret.Protector

// Vault stores one API credential encrypted in a local file.
//
// Record layout, little-endian:
//
//	[saltLen int32][salt][cipherLen int32][cipher]
type Vault struct {
	path      string
	protector Protector
	logger    *slog.Logger
}

// VaultOption configures a Vault.
type VaultOption func(*Vault)

// WithProtector replaces the platform protector.
func WithProtector(p Protector) VaultOption {
	return func(v *Vault) {
		if p != nil {
			v.protector = p
		}
	}
}

// WithVaultLogger sets the logger. A nil logger discards output.
func WithVaultLogger(l *slog.Logger) VaultOption {
	return func(v *Vault) {
		v.logger = orDiscard(l)
	}
}

// NewVault creates a vault backed by path. Platform key material, when the
// platform needs any, lives next to path.
func NewVault(path string, opts ...VaultOption) *Vault {
	v := &Vault{
		path:   path,
		logger: orDiscard(nil),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.protector == nil {
		v.protector = secret.NewUserProtector(filepath.Dir(path))
	}
	return v
}

// Path returns the record file.
func (v *Vault) Path() string { return v.path }

// Store encrypts value under a fresh salt and replaces any prior record.
func (v *Vault) Store(value string) error {
	if strings.TrimSpace(value) == "" {
		return ErrBlankSecret
	}

	salt, err := secret.NewSalt()
	if err != nil {
		return &PersistenceWarning{Op: "store", Path: v.path, Err: err}
	}

	plaintext := []byte(value)
	defer secret.Zero(plaintext)

	sealed, err := v.protector.Protect(plaintext, salt)
	if err != nil {
		return &PersistenceWarning{Op: "store", Path: v.path, Err: err}
	}

	record, err := encodeRecord(salt, sealed)
	if err != nil {
		return &PersistenceWarning{Op: "store", Path: v.path, Err: err}
	}
	if err := fileutil.AtomicWriteFile(v.path, record, secretFilePerm, secretDirPerm); err != nil {
		return &PersistenceWarning{Op: "store", Path: v.path, Err: err}
	}

	v.logger.Info("secret stored", "path", v.path)
	return nil
}

// Retrieve decrypts the stored value. A missing, unreadable or corrupt
// record reports ok=false; the cause is logged at debug level.
func (v *Vault) Retrieve() (value string, ok bool) {
	data, err := os.ReadFile(v.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			v.logger.Debug("secret file unreadable", "path", v.path, "error", err)
		}
		return "", false
	}

	salt, sealed, err := decodeRecord(data)
	if err != nil {
		v.logger.Debug("secret file ignored", "path", v.path, "error", err)
		return "", false
	}

	plaintext, err := v.protector.Unprotect(sealed, salt)
	if err != nil {
		v.logger.Debug("secret not decrypted", "path", v.path, "error", err)
		return "", false
	}
	defer secret.Zero(plaintext)

	return string(plaintext), true
}

// Delete removes the record. A missing record is not an error.
func (v *Vault) Delete() error {
	if err := os.Remove(v.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &PersistenceWarning{Op: "delete", Path: v.path, Err: err}
	}
	return nil
}

// Exists reports whether a record file is present. It does not decrypt.
func (v *Vault) Exists() bool {
	return fileutil.FileExists(v.path)
}

func encodeRecord(salt, sealed []byte) ([]byte, error) {
	if len(salt) > math.MaxInt32 || len(sealed) > math.MaxInt32 {
		return nil, fmt.Errorf("%w: field too large", errCorruptRecord)
	}

	var buf bytes.Buffer
	buf.Grow(8 + len(salt) + len(sealed))
	for _, field := range [][]byte{salt, sealed} {
		_ = binary.Write(&buf, binary.LittleEndian, int32(len(field))) // #nosec G115 -- bounded above
		buf.Write(field)
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (salt, sealed []byte, err error) {
	rest := data
	if salt, rest, err = readField(rest); err != nil {
		return nil, nil, err
	}
	if sealed, _, err = readField(rest); err != nil {
		return nil, nil, err
	}
	return salt, sealed, nil
}

func readField(data []byte) (field, rest []byte, err error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("%w: truncated length", errCorruptRecord)
	}
	n := int32(binary.LittleEndian.Uint32(data[:4])) // #nosec G115 -- sign checked below
	data = data[4:]
	if n < 0 || int64(n) > int64(len(data)) {
		return nil, nil, fmt.Errorf("%w: length %d out of range", errCorruptRecord, n)
	}
	return data[:n], data[n:], nil
}
