package findings

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// Filter decides which findings get recorded, driven by an
// operator-supplied jq expression. The expression runs against the JSON
// form of each finding; any truthy output keeps it, no output or
// false/null drops it. An empty expression keeps everything.
type Filter struct {
	code *gojq.Code
}

// NewFilter parses and compiles the jq expression.
func NewFilter(expression string) (*Filter, error) {
	if expression == "" {
		return &Filter{}, nil
	}
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compiling jq expression: %w", err)
	}
	return &Filter{code: code}, nil
}

// Keep reports whether the finding passes the filter.
func (fl *Filter) Keep(f *Finding) (bool, error) {
	if fl.code == nil {
		return true, nil
	}

	// Round-trip to get the plain any form gojq operates on.
	raw, err := json.Marshal(f)
	if err != nil {
		return false, fmt.Errorf("encoding finding: %w", err)
	}
	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return false, fmt.Errorf("decoding finding: %w", err)
	}

	iter := fl.code.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			return false, nil
		}
		if err, isErr := v.(error); isErr {
			return false, fmt.Errorf("running jq expression: %w", err)
		}
		if v == nil || v == false {
			continue
		}
		return true, nil
	}
}
