//go:build windows

package secret

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// DPAPIProtector seals data with the Windows Data Protection API, bound to
// the current user's logon credentials. The salt is passed as optional
// entropy.
type DPAPIProtector struct{}

// NewUserProtector returns the platform protector. DPAPI keeps its own key
// material, so dir is unused on Windows.
func NewUserProtector(dir string) Protector {
	_ = dir
	return DPAPIProtector{}
}

// Protect seals plaintext with CryptProtectData.
func (DPAPIProtector) Protect(plaintext, salt []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, ErrEmptyInput
	}

	var out windows.DataBlob
	err := windows.CryptProtectData(blob(plaintext), nil, blob(salt), 0, nil, windows.CRYPTPROTECT_UI_FORBIDDEN, &out)
	if err != nil {
		return nil, fmt.Errorf("CryptProtectData: %w", err)
	}
	return takeBlob(&out), nil
}

// Unprotect opens data sealed by Protect with the same salt.
func (DPAPIProtector) Unprotect(ciphertext, salt []byte) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("%w: empty ciphertext", ErrUnprotect)
	}

	var out windows.DataBlob
	err := windows.CryptUnprotectData(blob(ciphertext), nil, blob(salt), 0, nil, windows.CRYPTPROTECT_UI_FORBIDDEN, &out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnprotect, err)
	}
	return takeBlob(&out), nil
}

func blob(b []byte) *windows.DataBlob {
	if len(b) == 0 {
		return &windows.DataBlob{}
	}
	return &windows.DataBlob{Size: uint32(len(b)), Data: &b[0]}
}

// takeBlob copies a DPAPI-allocated buffer into Go memory and frees it.
func takeBlob(b *windows.DataBlob) []byte {
	if b.Data == nil {
		return nil
	}
	defer func() { _, _ = windows.LocalFree(windows.Handle(unsafe.Pointer(b.Data))) }()

	src := unsafe.Slice(b.Data, b.Size)
	out := make([]byte, len(src))
	copy(out, src)
	Zero(src)
	return out
}
