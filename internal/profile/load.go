package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Document is the on-disk shape of a profile file: one object per target,
// in the same order as the targets they describe.
type Document struct {
	Targets []Profile `json:"targets"`
}

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// documentSchema derives the JSON Schema for Document from the Go struct
// and compiles it for validation. Compiled once, reused for every load.
func documentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		reflector := invopop.Reflector{
			// Profile documents are hand-written; unknown keys are
			// almost always typos, so reject them.
			AllowAdditionalProperties: false,
			DoNotReference:            true,
		}
		derived := reflector.Reflect(&Document{})

		// Round-trip through JSON to get the plain value form the
		// validator compiles from.
		raw, err := json.Marshal(derived)
		if err != nil {
			schemaErr = fmt.Errorf("marshaling derived schema: %w", err)
			return
		}
		value, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			schemaErr = fmt.Errorf("unmarshaling derived schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("profiles.schema.json", value); err != nil {
			schemaErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("profiles.schema.json")
	})
	return schema, schemaErr
}

// Load reads a profile document, validates it against the derived schema
// and returns one profile pointer per target, preserving document order.
func Load(r io.Reader) ([]*Profile, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading profile document: %w", err)
	}

	sch, err := documentSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling profile schema: %w", err)
	}

	value, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing profile document: %w", err)
	}
	if err := sch.Validate(value); err != nil {
		return nil, fmt.Errorf("validating profile document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding profile document: %w", err)
	}

	profiles := make([]*Profile, len(doc.Targets))
	for i := range doc.Targets {
		if doc.Targets[i].Name == "" {
			return nil, fmt.Errorf("target %d: missing name", i)
		}
		profiles[i] = &doc.Targets[i]
	}
	return profiles, nil
}

// LoadFile loads and validates a profile document from disk.
func LoadFile(path string) ([]*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening profile document: %w", err)
	}
	defer f.Close()
	return Load(f)
}
