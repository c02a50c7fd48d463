package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"go.uber.org/zap"
)

// writeScript drops an executable shell script and returns its path.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	path := filepath.Join(t.TempDir(), "notion-dev")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("writing script: %v", err)
	}
	return path
}

func TestRun_NotInstalled(t *testing.T) {
	r := New("definitely-not-a-binary-xyz", "", zap.NewNop())

	if r.Installed() {
		t.Fatal("Installed() should be false")
	}
	_, err := r.Run(context.Background(), "info")
	if !errors.Is(err, ErrNotInstalled) {
		t.Fatalf("err = %v, want ErrNotInstalled", err)
	}
}

func TestRun_CapturesStdout(t *testing.T) {
	bin := writeScript(t, `echo '{"ok":true}'`)
	r := New(bin, "", zap.NewNop())

	out, err := r.Run(context.Background(), "info", "--json")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "{\"ok\":true}\n" {
		t.Errorf("out = %q", out)
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	bin := writeScript(t, "echo 'bad config' >&2\nexit 3")
	r := New(bin, "", zap.NewNop())

	_, err := r.Run(context.Background(), "tickets")
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("err = %v, want CommandError", err)
	}
	if cmdErr.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", cmdErr.ExitCode)
	}
	if cmdErr.Stderr != "bad config" {
		t.Errorf("stderr = %q", cmdErr.Stderr)
	}
}

func TestRun_Timeout(t *testing.T) {
	bin := writeScript(t, "sleep 5")
	r := New(bin, "", zap.NewNop())
	r.timeout = 100 * time.Millisecond

	_, err := r.Run(context.Background(), "work", "123")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}
