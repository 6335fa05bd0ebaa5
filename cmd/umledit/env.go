package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	umledit "github.com/alnah/go-umledit"
)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, and the seams to the external renderer and network.
type Environment struct {
	Now    func() time.Time
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// ReadSecret reads one line without echo when stdin is a terminal.
	ReadSecret func(prompt string) (string, error)

	// Runner replaces the java subprocess runner when non-nil.
	Runner umledit.CommandRunner

	// HTTPClient replaces the assistant's client when non-nil.
	HTTPClient *http.Client
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	env := &Environment{
		Now:    time.Now,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Stdin:  os.Stdin,
	}
	env.ReadSecret = func(prompt string) (string, error) {
		return readSecret(env, prompt)
	}
	return env
}

// readSecret uses hidden input on a terminal and falls back to the first
// line of stdin when piped.
func readSecret(env *Environment, prompt string) (string, error) {
	fd := int(os.Stdin.Fd()) // #nosec G115 -- file descriptors fit in int
	if env.Stdin == os.Stdin && term.IsTerminal(fd) {
		fmt.Fprint(env.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(env.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return readLine(env.Stdin)
}

// readLine returns the first line of r without its line ending.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
