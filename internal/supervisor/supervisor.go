package supervisor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/kmullins/devserve/internal/config"
)

// Supervisor spawns the configured dev server and tracks it until it is
// confirmed dead. It owns the child process handle exclusively: no other
// component signals or waits on the child.
type Supervisor struct {
	spec *config.ServerSpec

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cmd      *exec.Cmd
	waitDone chan struct{}
	waitErr  error
}

// New constructs a supervisor for the provided server spec. The child's
// streams default to the parent's own, so its output reaches the terminal
// without buffering or capture.
func New(spec *config.ServerSpec) *Supervisor {
	return &Supervisor{
		spec:   spec,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// SetStreams overrides the child's standard streams. Passing nil keeps the
// current writer for that stream.
func (s *Supervisor) SetStreams(stdin io.Reader, stdout, stderr io.Writer) {
	if stdin != nil {
		s.stdin = stdin
	}
	if stdout != nil {
		s.stdout = stdout
	}
	if stderr != nil {
		s.stderr = stderr
	}
}

// Start spawns the child process. It may be called at most once per
// supervisor.
func (s *Supervisor) Start() error {
	if s.cmd != nil {
		return errors.New("supervisor: already started")
	}
	if len(s.spec.Command) == 0 {
		return errors.New("supervisor: command is empty")
	}

	cmd := exec.Command(s.spec.Command[0], s.spec.Command[1:]...)
	cmd.Dir = s.spec.ResolvedWorkdir

	env := os.Environ()
	for k, v := range s.spec.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Env = env

	cmd.Stdin = s.stdin
	cmd.Stdout = s.stdout
	cmd.Stderr = s.stderr

	configureCmdSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.spec.Command[0], err)
	}

	s.cmd = cmd
	s.waitDone = make(chan struct{})
	go func() {
		s.waitErr = cmd.Wait()
		close(s.waitDone)
	}()
	return nil
}

// IsRunning reports whether a child has been spawned and has not yet exited.
// The check is non-destructive: it never consumes the exit status.
func (s *Supervisor) IsRunning() bool {
	if s.cmd == nil {
		return false
	}
	select {
	case <-s.waitDone:
		return false
	default:
		return true
	}
}

// Pid returns the child's process id, or 0 before Start.
func (s *Supervisor) Pid() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Done returns a channel closed once the child has exited and its status has
// been reaped. It returns nil before Start.
func (s *Supervisor) Done() <-chan struct{} {
	return s.waitDone
}

// Wait blocks until the child exits and returns the wait result.
func (s *Supervisor) Wait() error {
	if s.cmd == nil {
		return errors.New("supervisor: not started")
	}
	<-s.waitDone
	return s.waitErr
}

func (s *Supervisor) grace() time.Duration {
	if d := s.spec.ShutdownGrace.Duration; d > 0 {
		return d
	}
	return 5 * time.Second
}

func (s *Supervisor) exited() bool {
	select {
	case <-s.waitDone:
		return true
	default:
		return false
	}
}

// ExitCode maps a Wait result to a process exit code: 0 for a nil error, the
// child's own code for an exit error, 1 for anything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode()
	}
	return 1
}
