package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kmullins/devserve/internal/config"
)

func watchSpec(interval, timeout time.Duration, failureThreshold int) config.ReadySpec {
	return config.ReadySpec{
		Interval:         config.Duration{Duration: interval},
		Timeout:          config.Duration{Duration: timeout},
		SuccessThreshold: 1,
		FailureThreshold: failureThreshold,
	}
}

func TestNew(t *testing.T) {
	if prober, err := New(nil); prober != nil || err != nil {
		t.Fatalf("expected nil prober for nil spec, got %v, %v", prober, err)
	}
	if _, err := New(&config.ReadySpec{}); err == nil {
		t.Fatal("expected error for spec without probes")
	}
}

func TestWatchReportsReadyTCP(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	spec := watchSpec(10*time.Millisecond, 100*time.Millisecond, 1000)
	spec.TCP = &config.TCPProbeSpec{Address: listener.Addr().String()}

	prober, err := New(&spec)
	if err != nil {
		t.Fatalf("new prober: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for event := range Watch(ctx, prober, &spec, nil) {
		if event.Status == StatusReady {
			return
		}
	}
	t.Fatal("watch ended without a ready transition")
}

func TestWatchReportsUnready(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	spec := watchSpec(5*time.Millisecond, 50*time.Millisecond, 3)
	spec.TCP = &config.TCPProbeSpec{Address: addr}

	prober, err := New(&spec)
	if err != nil {
		t.Fatalf("new prober: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for event := range Watch(ctx, prober, &spec, nil) {
		if event.Status == StatusUnready {
			if event.Err == nil {
				t.Fatal("unready event carried no error")
			}
			return
		}
	}
	t.Fatal("watch ended without an unready transition")
}

func TestHTTPProberExpectStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	prober := newHTTPProber(&config.HTTPProbeSpec{URL: srv.URL, ExpectStatus: []int{404}})
	if err := prober.Probe(context.Background()); err != nil {
		t.Fatalf("expected 404 to satisfy probe, got %v", err)
	}

	prober = newHTTPProber(&config.HTTPProbeSpec{URL: srv.URL, ExpectStatus: []int{200}})
	if err := prober.Probe(context.Background()); err == nil {
		t.Fatal("expected status mismatch error")
	}
}

func TestHTTPProberDefaultStatusRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	prober := newHTTPProber(&config.HTTPProbeSpec{URL: srv.URL})
	if err := prober.Probe(context.Background()); err != nil {
		t.Fatalf("expected 204 to satisfy probe, got %v", err)
	}
}

func TestAnyProberSucceedsWhenOneProbePasses(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	spec := watchSpec(10*time.Millisecond, 500*time.Millisecond, 1000)
	spec.TCP = &config.TCPProbeSpec{Address: listener.Addr().String()}
	spec.HTTP = &config.HTTPProbeSpec{URL: "http://127.0.0.1:1/"}

	prober, err := New(&spec)
	if err != nil {
		t.Fatalf("new prober: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := prober.Probe(ctx); err != nil {
		t.Fatalf("expected tcp success to win, got %v", err)
	}
}
