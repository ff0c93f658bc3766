package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kmullins/devserve/internal/config"
)

// Status captures the readiness condition surfaced by the watch loop.
type Status string

const (
	// StatusUnknown is used internally to track transitions and is not
	// emitted on the public channel.
	StatusUnknown Status = "unknown"
	// StatusReady indicates that the probe has satisfied the configured
	// success threshold.
	StatusReady Status = "ready"
	// StatusUnready indicates that the probe has exceeded the configured
	// failure threshold.
	StatusUnready Status = "unready"
)

// Event describes a readiness state transition emitted by Watch.
type Event struct {
	Status Status
	Err    error
	At     time.Time
}

// Prober defines the behaviour required by the Watch loop.
type Prober interface {
	Probe(ctx context.Context) error
}

// New constructs a Prober for the supplied readiness specification. When
// both a TCP and an HTTP probe are configured, readiness is reported as soon
// as either succeeds.
func New(spec *config.ReadySpec) (Prober, error) {
	if spec == nil {
		return nil, nil
	}
	probes := make([]Prober, 0, 2)
	if spec.HTTP != nil {
		probes = append(probes, newHTTPProber(spec.HTTP))
	}
	if spec.TCP != nil {
		probes = append(probes, newTCPProber(spec.TCP))
	}
	if len(probes) == 0 {
		return nil, errors.New("probe: missing configuration")
	}
	if len(probes) == 1 {
		return probes[0], nil
	}
	return anyProber(probes), nil
}

// anyProber succeeds when any of its members succeeds.
type anyProber []Prober

func (a anyProber) Probe(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan error, len(a))
	for _, prober := range a {
		go func(p Prober) {
			results <- p.Probe(ctx)
		}(prober)
	}

	var errs []error
	for range a {
		select {
		case <-ctx.Done():
			if len(errs) == 0 {
				return ctx.Err()
			}
		case err := <-results:
			if err == nil {
				cancel()
				return nil
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Watch continuously executes the provided prober until the context is
// cancelled. Transitions between ready and unready states are emitted on the
// returned channel. The channel is closed once the context is cancelled.
func Watch(ctx context.Context, prober Prober, spec *config.ReadySpec, nowFn func() time.Time) <-chan Event {
	events := make(chan Event, 1)
	if ctx == nil {
		close(events)
		return events
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	go func() {
		defer close(events)
		if prober == nil || spec == nil {
			return
		}

		successNeeded := spec.SuccessThreshold
		if successNeeded <= 0 {
			successNeeded = 1
		}
		failureAllowed := spec.FailureThreshold
		if failureAllowed <= 0 {
			failureAllowed = 1
		}

		interval := spec.Interval.Duration
		timeout := spec.Timeout.Duration

		if gp := spec.GracePeriod.Duration; gp > 0 {
			timer := time.NewTimer(gp)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}

		successes := 0
		failures := 0
		status := StatusUnknown

		for {
			attemptCtx := ctx
			cancel := func() {}
			if timeout > 0 {
				attemptCtx, cancel = context.WithTimeout(ctx, timeout)
			}

			err := prober.Probe(attemptCtx)
			cancel()

			if ctx.Err() != nil {
				return
			}

			if err == nil {
				successes++
				failures = 0
				if successes >= successNeeded && status != StatusReady {
					status = StatusReady
					if !sendEvent(ctx, events, Event{Status: StatusReady, At: nowFn()}) {
						return
					}
				}
			} else {
				if attemptCtx.Err() == context.DeadlineExceeded && errors.Is(err, context.DeadlineExceeded) {
					err = fmt.Errorf("timeout after %s", timeout)
				}

				successes = 0
				failures++
				if failures >= failureAllowed && status != StatusUnready {
					status = StatusUnready
					if !sendEvent(ctx, events, Event{Status: StatusUnready, Err: err, At: nowFn()}) {
						return
					}
				}
			}

			if interval <= 0 {
				select {
				case <-ctx.Done():
					return
				default:
				}
				continue
			}

			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
	return events
}

func sendEvent(ctx context.Context, events chan<- Event, event Event) bool {
	select {
	case <-ctx.Done():
		return false
	case events <- event:
		return true
	}
}
