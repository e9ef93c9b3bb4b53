// Package httpmsg defines the parsed HTTP/1.1 message model shared by the
// wire parser, the request normalizer and the discrepancy classifier.
// All values are treated as immutable: every operation returns a fresh value
// and never mutates its receiver.
package httpmsg

import (
	"bytes"
	"slices"
	"strings"
)

// Recognized HTTP versions. Version09 marks the legacy request form that
// carries neither a version token nor headers.
const (
	Version09 = "0.9"
	Version10 = "1.0"
	Version11 = "1.1"
)

// Header is a single name/value pair. Duplicates are permitted and list
// order is meaningful until SortHeaders is applied.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Request is a request as one target server understood it.
type Request struct {
	Method  string   `json:"method"`
	Target  string   `json:"target"`
	Version string   `json:"version"`
	Headers []Header `json:"headers"`
	Body    []byte   `json:"body"`
}

// Response is a rejection (or any other response) produced by a target.
// The classifier inspects only the status code and header presence.
type Response struct {
	Code    string   `json:"code"`
	Headers []Header `json:"headers"`
	Body    []byte   `json:"body"`
}

// Absent marks a stream position at which a target produced no further
// message (connection closed or stream truncated). It is not interchangeable
// with a present-but-empty entry.
type Absent struct{}

// Entry is one position of a ResultSequence: exactly one of Request,
// Response or Absent. The interface is sealed so the set stays closed.
type Entry interface {
	entry()
}

func (Request) entry()  {}
func (Response) entry() {}
func (Absent) entry()   {}

// ResultSequence is the ordered list of artifacts one target produced for a
// single input byte stream. Positions beyond the end are implicitly Absent.
type ResultSequence []Entry

// At returns the entry at position i, or Absent beyond the end.
func (s ResultSequence) At(i int) Entry {
	if i < len(s) {
		return s[i]
	}
	return Absent{}
}

// HasHeader reports whether the request carries a header with the given
// name. Name comparison is case-insensitive.
func (r Request) HasHeader(name string) bool {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return true
		}
	}
	return false
}

// RemoveHeader returns a copy of the request with every header matching
// name (case-insensitive) removed.
func (r Request) RemoveHeader(name string) Request {
	headers := make([]Header, 0, len(r.Headers))
	for _, h := range r.Headers {
		if !strings.EqualFold(h.Name, name) {
			headers = append(headers, h)
		}
	}
	r.Headers = headers
	return r
}

// TranslateHeaderNames returns a copy of the request with every header name
// rewritten through the mapping. Lookup is case-insensitive; names without
// a mapping entry are kept as-is.
func (r Request) TranslateHeaderNames(mapping map[string]string) Request {
	if len(mapping) == 0 {
		return r
	}
	folded := make(map[string]string, len(mapping))
	for from, to := range mapping {
		folded[strings.ToLower(from)] = to
	}
	headers := make([]Header, len(r.Headers))
	for i, h := range r.Headers {
		if to, ok := folded[strings.ToLower(h.Name)]; ok {
			h.Name = to
		}
		headers[i] = h
	}
	r.Headers = headers
	return r
}

// SortHeaders returns a copy of the request with headers ordered by
// (lowercased name, value). Wire order is not a correctness signal once
// framing has otherwise been validated, so sorting removes it before
// structural comparison.
func (r Request) SortHeaders() Request {
	headers := make([]Header, len(r.Headers))
	copy(headers, r.Headers)
	slices.SortStableFunc(headers, func(a, b Header) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.Value, b.Value)
	})
	r.Headers = headers
	return r
}

// Equal reports structural equality: method, target and version byte-exact,
// headers pairwise equal in order (names case-insensitive, values exact),
// bodies byte-exact. Callers comparing across servers should normalize and
// sort headers first.
func (r Request) Equal(o Request) bool {
	if r.Method != o.Method || r.Target != o.Target || r.Version != o.Version {
		return false
	}
	if len(r.Headers) != len(o.Headers) {
		return false
	}
	for i := range r.Headers {
		if !strings.EqualFold(r.Headers[i].Name, o.Headers[i].Name) ||
			r.Headers[i].Value != o.Headers[i].Value {
			return false
		}
	}
	return bytes.Equal(r.Body, o.Body)
}
