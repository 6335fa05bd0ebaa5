package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	umledit "github.com/alnah/go-umledit"
	"github.com/alnah/go-umledit/internal/fileutil"
)

// stdinArg selects standard input in place of a file.
const stdinArg = "-"

// maxInputBytes bounds markup read from files or stdin.
const maxInputBytes = 4 << 20

// readInput returns the content of path, or of stdin for "-".
func readInput(path string, env *Environment) (string, error) {
	var r io.Reader
	if path == stdinArg {
		r = env.Stdin
	} else {
		f, err := os.Open(path) // #nosec G304 -- user-provided input path
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrReadInput, err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReadInput, err)
	}
	if len(data) > maxInputBytes {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrReadInput, path, maxInputBytes)
	}
	return string(data), nil
}

// outputPathFor maps an input file to its artifact path: same base name with
// the format's extension, in outDir or next to the input.
func outputPathFor(input, outDir string, format umledit.Format) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, base+format.Extension())
}

// deliver moves a work-directory artifact to dst.
func deliver(artifact, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), dirPermissions); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	if err := fileutil.CopyFile(artifact, dst, filePermissions); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	_ = os.Remove(artifact)
	return nil
}

// samePath reports whether a and b name the same file.
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
