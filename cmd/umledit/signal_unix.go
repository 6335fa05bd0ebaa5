//go:build !windows

package main

import (
	"os"
	"syscall"
)

// SIGHUP is included so closing the terminal stops a running watch.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}
