//go:build !windows

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"
)

// Stop terminates the child: SIGTERM to its process group, a bounded wait for
// voluntary exit, then SIGKILL followed by an unbounded wait for the OS to
// confirm termination. It is idempotent and safe to call before Start or
// after the child has already exited.
func (s *Supervisor) Stop(ctx context.Context) error {
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	if s.exited() {
		return nil
	}

	if err := syscall.Kill(-s.cmd.Process.Pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("signal process group %d: %w", s.cmd.Process.Pid, err)
	}

	select {
	case <-s.waitDone:
		return nil
	case <-time.After(s.grace()):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := syscall.Kill(-s.cmd.Process.Pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("kill process group %d: %w", s.cmd.Process.Pid, err)
	}
	select {
	case <-s.waitDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
