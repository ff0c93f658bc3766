package cli

import (
	"bytes"
	stdcontext "context"
	"errors"
	"io"
	"os"
	"path/filepath"
	stdruntime "runtime"
	"strings"
	"testing"
	"time"

	"github.com/kmullins/devserve/internal/lockfile"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if stdruntime.GOOS == "windows" {
		t.Skip("cli run tests use /bin/sh")
	}
}

func writeManifest(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "devserve.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func restoreWorkdir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Errorf("restore workdir: %v", err)
		}
	})
}

func executeRoot(t *testing.T, ctx stdcontext.Context, out, errOut io.Writer, args ...string) error {
	t.Helper()
	root := NewRootCmd()
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func TestRunPropagatesChildExitCode(t *testing.T) {
	skipOnWindows(t)
	restoreWorkdir(t)

	path := writeManifest(t, "server:\n  command: [/bin/sh, -c, 'exit 3']\n")

	err := executeRoot(t, stdcontext.Background(), io.Discard, io.Discard, "-f", path)
	var coded *exitCodeError
	if !errors.As(err, &coded) {
		t.Fatalf("expected exit code error, got %v", err)
	}
	if coded.code != 3 {
		t.Fatalf("expected exit code 3, got %d", coded.code)
	}
}

func TestRunCleanChildExit(t *testing.T) {
	skipOnWindows(t)
	restoreWorkdir(t)

	path := writeManifest(t, "server:\n  command: [/bin/sh, -c, 'exit 0']\n")

	if err := executeRoot(t, stdcontext.Background(), io.Discard, io.Discard, "-f", path); err != nil {
		t.Fatalf("expected clean run, got %v", err)
	}
}

func TestRunMissingRunner(t *testing.T) {
	restoreWorkdir(t)

	path := writeManifest(t, "server:\n  command: [devserve-test-no-such-binary]\n")

	var errBuf bytes.Buffer
	err := executeRoot(t, stdcontext.Background(), io.Discard, &errBuf, "-f", path)
	var coded *exitCodeError
	if !errors.As(err, &coded) {
		t.Fatalf("expected exit code error, got %v", err)
	}
	if coded.code != 1 {
		t.Fatalf("expected exit code 1, got %d", coded.code)
	}
	if !strings.Contains(errBuf.String(), "not found") {
		t.Fatalf("expected missing-runner diagnostic, got %q", errBuf.String())
	}
}

func TestRunSignalPathExitsClean(t *testing.T) {
	skipOnWindows(t)
	restoreWorkdir(t)

	path := writeManifest(t, "server:\n  command: [/bin/sh, -c, 'sleep 30']\n  shutdownGrace: 2s\n")

	ctx, cancel := stdcontext.WithCancel(stdcontext.Background())
	defer cancel()
	timer := time.AfterFunc(300*time.Millisecond, cancel)
	defer timer.Stop()

	var outBuf bytes.Buffer
	start := time.Now()
	if err := executeRoot(t, ctx, &outBuf, io.Discard, "-f", path); err != nil {
		t.Fatalf("signal path must not report failure, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("shutdown took %v", elapsed)
	}
	if !strings.Contains(outBuf.String(), "Shutting down") {
		t.Fatalf("expected shutdown notice, got %q", outBuf.String())
	}
}

func TestRunRefusesSecondInstance(t *testing.T) {
	skipOnWindows(t)
	restoreWorkdir(t)

	path := writeManifest(t, "server:\n  command: [/bin/sh, -c, 'exit 0']\n")

	lock, err := lockfile.Acquire(filepath.Dir(path))
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	defer lock.Release()

	runErr := executeRoot(t, stdcontext.Background(), io.Discard, io.Discard, "-f", path)
	var coded *exitCodeError
	if !errors.As(runErr, &coded) {
		t.Fatalf("expected exit code error, got %v", runErr)
	}
	if coded.code != 1 || !strings.Contains(coded.message, "already running") {
		t.Fatalf("unexpected lock failure: code=%d message=%q", coded.code, coded.message)
	}
}

func TestRunPrintsLaunchBanner(t *testing.T) {
	skipOnWindows(t)
	restoreWorkdir(t)

	path := writeManifest(t, "server:\n  command: [/bin/sh, -c, 'exit 0']\n")

	var outBuf bytes.Buffer
	if err := executeRoot(t, stdcontext.Background(), &outBuf, io.Discard, "-f", path); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := outBuf.String()
	if !strings.Contains(got, "Starting dev server from: "+filepath.Dir(path)) {
		t.Fatalf("banner missing workdir: %q", got)
	}
	if !strings.Contains(got, "Running: /bin/sh -c exit 0") {
		t.Fatalf("banner missing command: %q", got)
	}
	if !strings.Contains(got, "press Ctrl+C") {
		t.Fatalf("banner missing stop instruction: %q", got)
	}
}
