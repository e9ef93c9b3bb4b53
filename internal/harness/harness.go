// Package harness runs the fuzzing campaign: pick a seed, mutate it, feed
// it to every target, parse what came back, classify the disagreement, and
// record anything the profiles cannot explain.
package harness

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/usestring/httpdelta/internal/corpus"
	"github.com/usestring/httpdelta/internal/diff"
	"github.com/usestring/httpdelta/internal/findings"
	"github.com/usestring/httpdelta/internal/metrics"
	"github.com/usestring/httpdelta/internal/mutate"
	"github.com/usestring/httpdelta/internal/parser"
	"github.com/usestring/httpdelta/internal/profile"
	"github.com/usestring/httpdelta/pkg/httpmsg"
)

// Exchanger sends one byte stream to every target and returns each
// target's raw output in target order.
type Exchanger interface {
	Exchange(ctx context.Context, stream [][]byte) ([][]byte, error)
}

// Params collects everything a campaign needs.
type Params struct {
	Exchanger   Exchanger
	TargetNames []string
	Profiles    []*profile.Profile

	Corpus *corpus.Store
	Engine *mutate.Engine
	Sinks  []findings.Sink
	Filter *findings.Filter
	Meter  *metrics.Metrics
	Rand   *rand.Rand

	// Iterations caps the campaign; 0 runs until the context ends.
	Iterations uint64
}

// Harness is one fuzzing campaign.
type Harness struct {
	p Params

	// lastRecorded steers seed selection toward the neighborhood of the
	// most recent finding.
	lastRecorded [][]byte
}

// New validates the parameters and builds a harness.
func New(p Params) (*Harness, error) {
	if len(p.TargetNames) != len(p.Profiles) {
		return nil, fmt.Errorf("%d targets against %d profiles", len(p.TargetNames), len(p.Profiles))
	}
	if len(p.TargetNames) < 2 {
		return nil, fmt.Errorf("differential fuzzing needs at least 2 targets, got %d", len(p.TargetNames))
	}
	if p.Corpus.Len() == 0 {
		for _, seed := range corpus.DefaultSeeds() {
			p.Corpus.Add(seed)
		}
	}
	return &Harness{p: p}, nil
}

// Run drives iterations until the cap or the context ends.
func (h *Harness) Run(ctx context.Context) error {
	for _, sink := range h.p.Sinks {
		if err := sink.Start(ctx); err != nil {
			return fmt.Errorf("starting %s sink: %w", sink.Name(), err)
		}
	}
	defer func() {
		for _, sink := range h.p.Sinks {
			if err := sink.Close(); err != nil {
				slog.Warn("closing sink",
					slog.String("sink", sink.Name()),
					slog.String("error", err.Error()),
				)
			}
		}
	}()

	slog.Info("campaign starting",
		slog.Any("targets", h.p.TargetNames),
		slog.Uint64("iterations", h.p.Iterations),
		slog.Int("seeds", h.p.Corpus.Len()),
	)

	for iter := uint64(0); h.p.Iterations == 0 || iter < h.p.Iterations; iter++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		h.runOnce(ctx, iter)
	}
	return nil
}

func (h *Harness) runOnce(ctx context.Context, iter uint64) {
	start := time.Now()

	seed := h.pickSeed()
	stream, tokens := h.p.Engine.Mutate(seed)
	if !h.p.Corpus.MarkTried(stream) {
		return
	}

	raw, err := h.p.Exchanger.Exchange(ctx, stream)
	if err != nil {
		h.p.Meter.TransportErrors.Inc()
		slog.Warn("exchange failed",
			slog.Uint64("iteration", iter),
			slog.String("error", err.Error()),
		)
		return
	}

	results := make([]httpmsg.ResultSequence, len(raw))
	for i, out := range raw {
		results[i] = parser.ParseStream(out)
	}

	verdict := diff.Classify(results, h.p.Profiles)
	h.p.Engine.Reward(tokens, rewardFor(verdict))

	h.p.Meter.IterationsTotal.Inc()
	h.p.Meter.IterationDuration.Observe(time.Since(start).Seconds())

	if verdict != diff.None {
		h.record(iter, verdict, stream, raw)
	}
	h.p.Meter.CorpusSize.Set(float64(h.p.Corpus.Len()))
}

func (h *Harness) record(iter uint64, verdict diff.Discrepancy, stream [][]byte, raw [][]byte) {
	outputs := make([]findings.TargetOutput, len(raw))
	for i, out := range raw {
		outputs[i] = findings.TargetOutput{Target: h.p.TargetNames[i], Raw: out}
	}
	f := findings.New(iter, verdict.String(), stream, outputs)

	if h.p.Filter != nil {
		keep, err := h.p.Filter.Keep(f)
		if err != nil {
			slog.Warn("findings filter failed",
				slog.String("id", f.ID),
				slog.String("error", err.Error()),
			)
			return
		}
		if !keep {
			return
		}
	}

	for _, sink := range h.p.Sinks {
		if err := sink.Record(f); err != nil {
			h.p.Meter.SinkErrors.WithLabelValues(sink.Name()).Inc()
			slog.Warn("recording finding",
				slog.String("sink", sink.Name()),
				slog.String("id", f.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	h.p.Meter.FindingsTotal.WithLabelValues(verdict.String()).Inc()

	// Productive mutants go back into the pool so the campaign digs
	// around them.
	h.p.Corpus.Add(stream)
	h.lastRecorded = stream
}

// pickSeed draws the next seed, biased toward seeds sharing tokens with
// the last recorded finding.
func (h *Harness) pickSeed() [][]byte {
	if h.lastRecorded != nil && h.p.Rand.Intn(2) == 0 {
		return h.p.Corpus.PickRelated(h.p.Rand, h.lastRecorded)
	}
	return h.p.Corpus.Pick(h.p.Rand)
}

// rewardFor scales the mutation reward by how interesting the verdict is.
func rewardFor(d diff.Discrepancy) float64 {
	switch d {
	case diff.StatusDiscrepancy:
		return 0.3
	case diff.StreamDiscrepancy:
		return 0.6
	case diff.SubtleDiscrepancy:
		return 1.0
	default:
		return 0
	}
}
