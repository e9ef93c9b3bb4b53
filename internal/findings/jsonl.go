package findings

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// JSONLSink appends one JSON document per finding to a file. Files are
// per-campaign; the operator names them, nothing rotates them.
type JSONLSink struct {
	path string

	mu sync.Mutex
	f  *os.File
}

// NewJSONLSink creates a sink writing to path. The file is created on
// Start so constructing sinks stays side-effect free.
func NewJSONLSink(path string) *JSONLSink {
	return &JSONLSink{path: path}
}

func (s *JSONLSink) Name() string { return "jsonl" }

func (s *JSONLSink) Start(ctx context.Context) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening findings file: %w", err)
	}
	s.f = f
	return nil
}

func (s *JSONLSink) Record(f *Finding) error {
	line, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding finding: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return fmt.Errorf("jsonl sink not started")
	}
	if _, err := s.f.Write(line); err != nil {
		return fmt.Errorf("writing finding: %w", err)
	}
	return nil
}

func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
