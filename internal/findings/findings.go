// Package findings records the iterations whose verdict was not clean:
// the offending byte stream, every target's raw output, and the assigned
// discrepancy category. Sinks are pluggable so one campaign can stream to
// a JSONL file, the log, and a database at once.
package findings

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TargetOutput is one target's raw answer to the offending stream.
type TargetOutput struct {
	Target string `json:"target"`
	Raw    []byte `json:"raw"` // base64 in JSON
}

// Finding is one non-clean fuzzing iteration.
type Finding struct {
	ID        string         `json:"id"`
	Iteration uint64         `json:"iteration"`
	Verdict   string         `json:"verdict"`
	Stream    [][]byte       `json:"stream"` // segments, base64 in JSON
	Outputs   []TargetOutput `json:"outputs"`
	At        time.Time      `json:"at"`
}

// New builds a finding with a fresh ID and timestamp.
func New(iteration uint64, verdict string, stream [][]byte, outputs []TargetOutput) *Finding {
	return &Finding{
		ID:        uuid.NewString(),
		Iteration: iteration,
		Verdict:   verdict,
		Stream:    stream,
		Outputs:   outputs,
		At:        time.Now().UTC(),
	}
}

// Sink receives findings. Implementations must be safe for concurrent
// Record calls.
type Sink interface {
	Start(ctx context.Context) error
	Record(f *Finding) error
	Close() error

	// Name identifies the sink in metrics and logs.
	Name() string
}
