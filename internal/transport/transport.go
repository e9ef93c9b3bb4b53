// Package transport feeds candidate byte streams to every target server and
// collects each target's raw output. It knows nothing about HTTP: bytes go
// out, bytes come back, and whatever a target answers (or doesn't) is the
// parser's problem.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"golang.org/x/sync/errgroup"
)

// Target is one server under test.
type Target struct {
	Name string
	Addr string // host:port
}

// Config controls per-connection behavior.
type Config struct {
	// DialTimeout bounds connection establishment per target.
	DialTimeout time.Duration

	// IdleTimeout is how long to wait for more output after the last
	// read before treating the stream as finished.
	IdleTimeout time.Duration

	// SegmentDelay is an optional pause between stream segments, so
	// targets that buffer per-read see the same segment boundaries the
	// fuzzer intended.
	SegmentDelay time.Duration
}

// Pool fans one byte stream out to a fixed set of targets.
type Pool struct {
	targets []Target
	cfg     Config
}

// NewPool creates a transport pool over the given targets.
func NewPool(targets []Target, cfg Config) *Pool {
	return &Pool{targets: targets, cfg: cfg}
}

// Targets returns the pool's targets in their configured order.
func (p *Pool) Targets() []Target {
	return p.targets
}

// Exchange sends the stream segments to every target concurrently and
// returns each target's raw output, parallel to the pool's target order.
// A target closing early is an ordinary outcome (its output is whatever
// was read before the close); only dial failures abort the exchange.
func (p *Pool) Exchange(ctx context.Context, stream [][]byte) ([][]byte, error) {
	outputs := make([][]byte, len(p.targets))

	g, ctx := errgroup.WithContext(ctx)
	for i, target := range p.targets {
		g.Go(func() error {
			out, err := p.exchangeOne(ctx, target, stream)
			if err != nil {
				return fmt.Errorf("target %s: %w", target.Name, err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func (p *Pool) exchangeOne(ctx context.Context, target Target, stream [][]byte) ([]byte, error) {
	dialer := net.Dialer{Timeout: p.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", target.Addr)
	if err != nil {
		return nil, fmt.Errorf("dialing: %w", err)
	}
	defer conn.Close()

	start := time.Now()
	for i, segment := range stream {
		if i > 0 && p.cfg.SegmentDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.cfg.SegmentDelay):
			}
		}
		if _, err := conn.Write(segment); err != nil {
			// The target slammed the door mid-stream; whatever it
			// already answered is still a valid observation.
			slog.Debug("write cut short",
				slog.String("target", target.Name),
				slog.Int("segment", i),
				slog.String("error", err.Error()),
			)
			break
		}
	}

	out, err := p.drain(conn)
	if err != nil {
		return nil, err
	}

	slog.Debug("exchange complete",
		slog.String("target", target.Name),
		slog.Int("bytes_out", len(out)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return out, nil
}

// drain reads until the target closes the connection or goes idle.
func (p *Pool) drain(conn net.Conn) ([]byte, error) {
	var out []byte
	buf := make([]byte, 4096)
	for {
		if err := conn.SetReadDeadline(time.Now().Add(p.cfg.IdleTimeout)); err != nil {
			return nil, fmt.Errorf("setting read deadline: %w", err)
		}
		n, err := conn.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			// EOF, idle deadline and peer resets all mean the same
			// thing here: the target is done talking.
			return out, nil
		}
	}
}
