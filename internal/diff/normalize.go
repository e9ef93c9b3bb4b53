// Package diff decides whether two target servers disagree about the
// meaning of the same input bytes. Normalize cancels profile-known header
// transformations so two accepted requests become comparable; Classify
// walks the per-target result sequences pairwise and assigns a discrepancy
// category.
package diff

import (
	"github.com/usestring/httpdelta/internal/profile"
	"github.com/usestring/httpdelta/pkg/httpmsg"
)

// Normalize rewrites a request accepted by the server described by own so
// it can be compared against the other server's accepted form of the same
// bytes. The caller must apply it twice, mirrored: Normalize(r1, p1, p2)
// and Normalize(r2, p2, p1). A single call is not sufficient because each
// server mutates headers according to its own profile.
//
// Step order matters: the name sets used by later steps must reflect
// earlier removals. The function is pure and idempotent.
func Normalize(r httpmsg.Request, own, other *profile.Profile) httpmsg.Request {
	// Headers own injected cannot have come from client input.
	for _, name := range own.AddedHeaders {
		r = r.RemoveHeader(name)
	}

	// Headers the other server injected into its own copy, mapped into
	// own's naming convention before matching.
	for _, name := range other.AddedHeaders {
		r = r.RemoveHeader(own.Translate(name))
	}

	// Headers either server drops or corrupts carry no signal on either
	// side.
	for _, name := range other.RemovedHeaders {
		r = r.RemoveHeader(own.Translate(name))
	}
	for _, name := range other.TrashedHeaders {
		r = r.RemoveHeader(own.Translate(name))
	}
	for _, name := range own.TrashedHeaders {
		r = r.RemoveHeader(name)
	}
	for _, name := range own.RemovedHeaders {
		r = r.RemoveHeader(name)
	}

	// Adopt the other server's naming convention so renamed headers
	// compare equal.
	if len(other.HeaderNameTranslation) > 0 {
		r = r.TranslateHeaderNames(other.HeaderNameTranslation)
	}

	return r.SortHeaders()
}
