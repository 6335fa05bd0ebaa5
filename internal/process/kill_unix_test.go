//go:build !windows

package process

import (
	"context"
	"os/exec"
	"testing"
	"time"
)

func TestConfigure_CancelKillsChildren(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// The backgrounded sleep holds stdout open; without the group kill Wait
	// would block until it exits.
	cmd := exec.CommandContext(ctx, "sh", "-c", "sleep 30 & wait")
	Configure(cmd)
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	_, _ = cmd.Output()
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("command ran %v after cancel, want group killed promptly", elapsed)
	}
}
