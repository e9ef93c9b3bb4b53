package findings

import (
	"context"
	"log/slog"
)

// LogSink reports findings through the structured logger. Useful for
// interactive campaigns where tailing the log is the whole workflow.
type LogSink struct{}

func NewLogSink() *LogSink { return &LogSink{} }

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Start(ctx context.Context) error { return nil }

func (s *LogSink) Record(f *Finding) error {
	targets := make([]string, len(f.Outputs))
	for i, out := range f.Outputs {
		targets[i] = out.Target
	}
	slog.Info("discrepancy found",
		slog.String("id", f.ID),
		slog.Uint64("iteration", f.Iteration),
		slog.String("verdict", f.Verdict),
		slog.Int("segments", len(f.Stream)),
		slog.Any("targets", targets),
	)
	return nil
}

func (s *LogSink) Close() error { return nil }
