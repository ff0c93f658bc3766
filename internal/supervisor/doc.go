// Package supervisor owns the lifecycle of a single dev-server child process.
//
// Full process-group termination is only guaranteed on Linux, where the
// supervisor can rely on the operating system's job-control semantics to
// deliver signals to every member of the child process group. On macOS and
// Windows the supervisor offers best-effort semantics: signals are delivered
// to the direct child, but without kernel-enforced job control any
// grandchildren may remain running and must be cleaned up separately.
//
// On Windows the Stop routine in stop_windows.go sends an interrupt and, if
// necessary, terminates only the top-level process.
package supervisor
