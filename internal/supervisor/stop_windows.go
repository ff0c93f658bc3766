//go:build windows

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// Stop terminates the child: an interrupt first, a bounded wait for
// voluntary exit, then an unconditional kill followed by an unbounded wait.
// It is idempotent and safe to call before Start or after the child has
// already exited.
func (s *Supervisor) Stop(ctx context.Context) error {
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	if s.exited() {
		return nil
	}

	_ = s.cmd.Process.Signal(os.Interrupt)

	select {
	case <-s.waitDone:
		return nil
	case <-time.After(s.grace()):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill process %d: %w", s.cmd.Process.Pid, err)
	}
	select {
	case <-s.waitDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
