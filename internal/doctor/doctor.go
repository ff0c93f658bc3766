// Package doctor runs preflight checks for the dev server environment.
package doctor

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	goversion "github.com/hashicorp/go-version"
	gopsnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sync/errgroup"

	"github.com/kmullins/devserve/internal/config"
)

// Result is the outcome of a single check. A nil Err means the check passed;
// Detail carries a human-readable note either way.
type Result struct {
	Name   string
	Detail string
	Err    error
}

type check struct {
	name string
	run  func(ctx context.Context) (string, error)
}

// Run executes every applicable check concurrently and returns the results
// in a stable order. Failures are reported per check, never as an error from
// Run itself.
func Run(ctx context.Context, cfg *config.File) []Result {
	checks := buildChecks(cfg)
	results := make([]Result, len(checks))

	g, ctx := errgroup.WithContext(ctx)
	for i, c := range checks {
		i, c := i, c
		g.Go(func() error {
			detail, err := c.run(ctx)
			results[i] = Result{Name: c.name, Detail: detail, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func buildChecks(cfg *config.File) []check {
	runner := cfg.Server.Command[0]
	checks := []check{{
		name: "runner " + runner,
		run: func(ctx context.Context) (string, error) {
			path, err := exec.LookPath(runner)
			if err != nil {
				return "", fmt.Errorf("%s not found on PATH", runner)
			}
			return path, nil
		},
	}}

	tools := make([]string, 0, len(cfg.Requires))
	for tool := range cfg.Requires {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	for _, tool := range tools {
		constraint := cfg.Requires[tool]
		checks = append(checks, check{
			name: fmt.Sprintf("%s %s", tool, constraint),
			run: func(ctx context.Context) (string, error) {
				return checkToolVersion(ctx, tool, constraint)
			},
		})
	}

	if addr := readyAddress(cfg.Server.Ready); addr != "" {
		checks = append(checks, check{
			name: "port " + addr,
			run: func(ctx context.Context) (string, error) {
				return checkPortFree(ctx, addr)
			},
		})
	}
	return checks
}

func checkToolVersion(ctx context.Context, tool, constraint string) (string, error) {
	out, err := exec.CommandContext(ctx, tool, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("run %s --version: %w", tool, err)
	}
	have, err := parseToolVersion(string(out))
	if err != nil {
		return "", fmt.Errorf("%s --version: %w", tool, err)
	}
	want, err := goversion.NewConstraint(constraint)
	if err != nil {
		return "", fmt.Errorf("constraint %q: %w", constraint, err)
	}
	if !want.Check(have) {
		return "", fmt.Errorf("have %s, want %s", have, constraint)
	}
	return have.String(), nil
}

func parseToolVersion(out string) (*goversion.Version, error) {
	raw := strings.TrimSpace(out)
	if i := strings.IndexByte(raw, '\n'); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	raw = strings.TrimPrefix(raw, "v")
	v, err := goversion.NewVersion(raw)
	if err != nil {
		return nil, fmt.Errorf("parse version %q: %w", raw, err)
	}
	return v, nil
}

// checkPortFree reports whether something is already listening on the
// readiness address, naming the owning process when it can.
func checkPortFree(ctx context.Context, addr string) (string, error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("parse address %s: %w", addr, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 32)
	if err != nil {
		return "", fmt.Errorf("parse port %s: %w", portStr, err)
	}

	conns, err := gopsnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return "", fmt.Errorf("list connections: %w", err)
	}
	for _, conn := range conns {
		if conn.Status != "LISTEN" || conn.Laddr.Port != uint32(port) {
			continue
		}
		owner := "unknown process"
		if conn.Pid > 0 {
			if proc, err := process.NewProcessWithContext(ctx, conn.Pid); err == nil {
				if name, err := proc.NameWithContext(ctx); err == nil {
					owner = name
				}
			}
			return "", fmt.Errorf("port %d already in use by %s (pid %d)", port, owner, conn.Pid)
		}
		return "", fmt.Errorf("port %d already in use", port)
	}
	return fmt.Sprintf("port %d free", port), nil
}

func readyAddress(spec *config.ReadySpec) string {
	if spec == nil {
		return ""
	}
	if spec.TCP != nil {
		return spec.TCP.Address
	}
	if spec.HTTP != nil {
		u, err := url.Parse(spec.HTTP.URL)
		if err != nil {
			return ""
		}
		host := u.Hostname()
		port := u.Port()
		if port == "" {
			switch u.Scheme {
			case "https":
				port = "443"
			default:
				port = "80"
			}
		}
		return net.JoinHostPort(host, port)
	}
	return ""
}
