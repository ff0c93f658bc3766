package config

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"time"

	goversion "github.com/hashicorp/go-version"
)

// Duration wraps time.Duration for YAML unmarshalling.
type Duration struct {
	time.Duration
	explicit bool
}

// UnmarshalText parses a textual duration, accepting empty strings.
func (d *Duration) UnmarshalText(text []byte) error {
	d.explicit = true
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// MarshalText renders the duration using time.Duration formatting.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// IsSet reports whether the duration was explicitly provided or non-zero.
func (d Duration) IsSet() bool {
	return d.explicit || d.Duration != 0
}

// File mirrors the devserve.yaml document structure.
type File struct {
	Server   ServerSpec        `yaml:"server"`
	Requires map[string]string `yaml:"requires"`
}

// ServerSpec describes the dev server the supervisor launches.
type ServerSpec struct {
	Command       []string          `yaml:"command"`
	Workdir       string            `yaml:"workdir"`
	Env           map[string]string `yaml:"env"`
	ShutdownGrace Duration          `yaml:"shutdownGrace"`
	Ready         *ReadySpec        `yaml:"ready"`

	// ResolvedWorkdir is the absolute working directory computed at load
	// time. It is never read from the manifest.
	ResolvedWorkdir string `yaml:"-"`
}

// ReadySpec configures the optional readiness report for the dev server.
type ReadySpec struct {
	TCP              *TCPProbeSpec  `yaml:"tcp"`
	HTTP             *HTTPProbeSpec `yaml:"http"`
	GracePeriod      Duration       `yaml:"gracePeriod"`
	Interval         Duration       `yaml:"interval"`
	Timeout          Duration       `yaml:"timeout"`
	SuccessThreshold int            `yaml:"successThreshold"`
	FailureThreshold int            `yaml:"failureThreshold"`
}

// TCPProbeSpec probes a listening socket.
type TCPProbeSpec struct {
	Address string `yaml:"address"`
}

// HTTPProbeSpec probes an HTTP endpoint.
type HTTPProbeSpec struct {
	URL          string `yaml:"url"`
	ExpectStatus []int  `yaml:"expectStatus"`
}

const (
	defaultShutdownGrace = 5 * time.Second
	defaultInterval      = 2 * time.Second
	defaultTimeout       = time.Second
)

// DefaultCommand is the command launched when the manifest omits one.
var DefaultCommand = []string{"npm", "run", "dev"}

// ApplyDefaults fills unset fields with the built-in defaults.
func (f *File) ApplyDefaults() {
	if len(f.Server.Command) == 0 {
		f.Server.Command = append([]string(nil), DefaultCommand...)
	}
	if !f.Server.ShutdownGrace.IsSet() {
		f.Server.ShutdownGrace = Duration{Duration: defaultShutdownGrace}
	}
	if r := f.Server.Ready; r != nil {
		if !r.Interval.IsSet() {
			r.Interval = Duration{Duration: defaultInterval}
		}
		if !r.Timeout.IsSet() {
			r.Timeout = Duration{Duration: defaultTimeout}
		}
		if r.SuccessThreshold <= 0 {
			r.SuccessThreshold = 1
		}
		if r.FailureThreshold <= 0 {
			r.FailureThreshold = 30
		}
	}
}

// Validate reports the first structural problem in the document.
func (f *File) Validate() error {
	if len(f.Server.Command) == 0 {
		return fmt.Errorf("server.command must not be empty")
	}
	if f.Server.Command[0] == "" {
		return fmt.Errorf("server.command[0] must name an executable")
	}
	if f.Server.ShutdownGrace.Duration < 0 {
		return fmt.Errorf("server.shutdownGrace must not be negative")
	}
	if r := f.Server.Ready; r != nil {
		if r.TCP == nil && r.HTTP == nil {
			return fmt.Errorf("server.ready requires a tcp or http probe")
		}
		if r.TCP != nil {
			if _, _, err := net.SplitHostPort(r.TCP.Address); err != nil {
				return fmt.Errorf("server.ready.tcp.address: %w", err)
			}
		}
		if r.HTTP != nil {
			u, err := url.Parse(r.HTTP.URL)
			if err != nil {
				return fmt.Errorf("server.ready.http.url: %w", err)
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return fmt.Errorf("server.ready.http.url: unsupported scheme %q", u.Scheme)
			}
		}
	}
	for _, tool := range sortedTools(f.Requires) {
		if _, err := goversion.NewConstraint(f.Requires[tool]); err != nil {
			return fmt.Errorf("requires.%s: invalid constraint %q: %w", tool, f.Requires[tool], err)
		}
	}
	return nil
}

func sortedTools(requires map[string]string) []string {
	tools := make([]string, 0, len(requires))
	for tool := range requires {
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	return tools
}
