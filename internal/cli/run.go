package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kmullins/devserve/internal/cliutil"
	"github.com/kmullins/devserve/internal/config"
	"github.com/kmullins/devserve/internal/lockfile"
	"github.com/kmullins/devserve/internal/probe"
	"github.com/kmullins/devserve/internal/supervisor"
)

func runServer(cmd *cobra.Command, cliCtx *context) error {
	out := cliutil.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := cliCtx.loadConfig()
	if err != nil {
		return err
	}
	srv := &cfg.Server

	if err := os.Chdir(srv.ResolvedWorkdir); err != nil {
		return fmt.Errorf("enter workdir %s: %w", srv.ResolvedWorkdir, err)
	}

	lock, err := lockfile.Acquire(srv.ResolvedWorkdir)
	if err != nil {
		if errors.Is(err, lockfile.ErrHeld) {
			return &exitCodeError{code: 1, message: fmt.Sprintf("devserve is already running in %s", srv.ResolvedWorkdir)}
		}
		return err
	}
	defer lock.Release()

	out.Infof("Starting dev server from: %s", srv.ResolvedWorkdir)
	out.Infof("Running: %s", strings.Join(srv.Command, " "))
	out.Infof("To stop the server and exit: press Ctrl+C in this terminal (not 'q').")
	out.Infof("")

	sup := supervisor.New(srv)
	if err := sup.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			out.Errorf("Error: %s not found. Ensure it is installed and on PATH.", srv.Command[0])
			return &exitCodeError{code: 1}
		}
		out.Errorf("Error starting dev server: %v", err)
		return &exitCodeError{code: 1}
	}

	runCtx := cmd.Context()
	if srv.Ready != nil {
		watchCtx, cancelWatch := stdcontext.WithCancel(runCtx)
		defer cancelWatch()
		go reportReadiness(watchCtx, out, srv.Ready)
	}

	select {
	case <-runCtx.Done():
		out.Infof("")
		out.Infof("Shutting down...")
		if sup.IsRunning() {
			out.Infof("Stopping dev server (PID %d)...", sup.Pid())
		}
		if err := sup.Stop(stdcontext.Background()); err != nil {
			out.Errorf("Error stopping dev server: %v", err)
		}
		// User-requested shutdown is not a failure, whatever the child's
		// own exit status was.
		return nil
	case <-sup.Done():
		err := sup.Wait()
		if err == nil {
			return nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &exitCodeError{code: supervisor.ExitCode(err)}
		}
		out.Errorf("Error running dev server: %v", err)
		return &exitCodeError{code: 1}
	}
}

func reportReadiness(ctx stdcontext.Context, out *cliutil.Printer, spec *config.ReadySpec) {
	prober, err := probe.New(spec)
	if err != nil {
		out.Warnf("readiness probe disabled: %v", err)
		return
	}
	for event := range probe.Watch(ctx, prober, spec, nil) {
		switch event.Status {
		case probe.StatusReady:
			out.Successf("Dev server is ready")
		case probe.StatusUnready:
			out.Warnf("Dev server not ready: %v", event.Err)
		}
	}
}
