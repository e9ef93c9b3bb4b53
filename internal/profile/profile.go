// Package profile describes the known behavioral quirks of each target
// server. A profile is pure data: the normalizer and classifier read it to
// tell expected, configuration-level differences apart from real
// protocol-interpretation bugs.
package profile

import "strings"

// Profile is a static quirk descriptor for one target. It is loaded once
// per server identity and treated as immutable for the whole run, so it may
// be shared freely across concurrent classifications.
type Profile struct {
	// Name identifies the target in findings and logs.
	Name string `json:"name"`

	// AddedHeaders are header names the server injects into a request
	// before processing; they can never have come from client input.
	AddedHeaders []string `json:"added_headers,omitempty"`

	// RemovedHeaders are header names the server is known to drop.
	RemovedHeaders []string `json:"removed_headers,omitempty"`

	// TrashedHeaders are header names the server mutates destructively.
	// For comparison purposes they are treated like removals.
	TrashedHeaders []string `json:"trashed_headers,omitempty"`

	// HeaderNameTranslation maps header names to the name this server
	// reports them under.
	HeaderNameTranslation map[string]string `json:"header_name_translation,omitempty"`

	// SupportsPersistence is false for servers that legitimately never
	// produce a second result on one connection.
	SupportsPersistence bool `json:"supports_persistence,omitempty"`

	// AllowsHTTP09 is true if the server accepts the legacy headerless
	// request form.
	AllowsHTTP09 bool `json:"allows_http_0_9,omitempty"`

	// RequiresLengthInPOST is true if the server answers 411 to a POST
	// without a length.
	RequiresLengthInPOST bool `json:"requires_length_in_post,omitempty"`

	// AllowsMissingHost is true if the server accepts requests without a
	// Host header.
	AllowsMissingHost bool `json:"allows_missing_host,omitempty"`

	// MethodAllowlist, when non-nil, is the complete set of methods the
	// server accepts. nil means no allow-list is declared.
	MethodAllowlist []string `json:"method_allowlist,omitempty"`

	// ForbiddenMethodChars are byte values the server rejects inside a
	// method token.
	ForbiddenMethodChars []byte `json:"forbidden_method_chars,omitempty"`
}

// Translate maps a header name through the profile's rename table.
// Lookup is case-insensitive; unmapped names pass through unchanged.
func (p *Profile) Translate(name string) string {
	for from, to := range p.HeaderNameTranslation {
		if strings.EqualFold(from, name) {
			return to
		}
	}
	return name
}

// AllowsMethod reports whether the method passes the profile's allow-list.
// A nil allow-list declares nothing and allows everything.
func (p *Profile) AllowsMethod(method string) bool {
	if p.MethodAllowlist == nil {
		return true
	}
	for _, m := range p.MethodAllowlist {
		if m == method {
			return true
		}
	}
	return false
}

// ForbidsMethodChar reports whether the method contains a byte from the
// profile's forbidden set.
func (p *Profile) ForbidsMethodChar(method string) bool {
	for i := 0; i < len(method); i++ {
		for _, c := range p.ForbiddenMethodChars {
			if method[i] == c {
				return true
			}
		}
	}
	return false
}
