package diff

import (
	"fmt"

	"github.com/usestring/httpdelta/internal/profile"
	"github.com/usestring/httpdelta/pkg/httpmsg"
)

// Discrepancy is the verdict for one fuzzing iteration. The values form a
// closed set with no severity ordering; callers may only distinguish None
// from the rest.
type Discrepancy int

const (
	// None: every server pair agreed, or disagreed only in ways the
	// profiles explain.
	None Discrepancy = iota

	// StatusDiscrepancy: one server accepted a message another rejected,
	// and no profile quirk accounts for it.
	StatusDiscrepancy

	// SubtleDiscrepancy: two servers accepted the same bytes but disagree
	// on their meaning after normalization. The highest-value finding:
	// a true parsing ambiguity exploitable for request smuggling.
	SubtleDiscrepancy

	// StreamDiscrepancy: one server kept parsing further messages in the
	// stream while another stopped, indicating disagreement about
	// framing or message length.
	StreamDiscrepancy
)

func (d Discrepancy) String() string {
	switch d {
	case None:
		return "none"
	case StatusDiscrepancy:
		return "status"
	case SubtleDiscrepancy:
		return "subtle"
	case StreamDiscrepancy:
		return "stream"
	default:
		return fmt.Sprintf("discrepancy(%d)", int(d))
	}
}

// Classify compares every pair of targets' result sequences and returns
// the first discrepancy found in increasing index-pair order, or None.
// results and profiles are parallel slices; a length mismatch is a bug in
// the caller and panics.
func Classify(results []httpmsg.ResultSequence, profiles []*profile.Profile) Discrepancy {
	if len(results) != len(profiles) {
		panic(fmt.Sprintf("diff: %d result sequences against %d profiles", len(results), len(profiles)))
	}
	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			if d := classifyPair(results[i], profiles[i], results[j], profiles[j]); d != None {
				return d
			}
		}
	}
	return None
}

// classifyPair walks two targets' sequences position by position and
// returns the first discrepancy, or None.
func classifyPair(s1 httpmsg.ResultSequence, p1 *profile.Profile, s2 httpmsg.ResultSequence, p2 *profile.Profile) Discrepancy {
	// A non-persistent server legitimately never produces a second
	// result, so positions past the first are not comparable.
	if !p1.SupportsPersistence || !p2.SupportsPersistence {
		s1 = truncate(s1)
		s2 = truncate(s2)
	}

	n := len(s1)
	if len(s2) > n {
		n = len(s2)
	}
	for pos := 0; pos < n; pos++ {
		d, done := classifyPosition(s1.At(pos), p1, s2.At(pos), p2)
		if d != None {
			return d
		}
		if done {
			return None
		}
	}
	return None
}

func truncate(s httpmsg.ResultSequence) httpmsg.ResultSequence {
	if len(s) > 1 {
		return s[:1]
	}
	return s
}

// classifyPosition applies the per-position rules to one entry pair.
// done reports that the pair is settled and remaining positions must not
// be compared.
func classifyPosition(e1 httpmsg.Entry, p1 *profile.Profile, e2 httpmsg.Entry, p2 *profile.Profile) (d Discrepancy, done bool) {
	_, absent1 := e1.(httpmsg.Absent)
	_, absent2 := e2.(httpmsg.Absent)

	// A clean 400 on one side and silent close on the other are the same
	// "rejected" outcome.
	if (absent1 && isRejection(e2, "400")) || (absent2 && isRejection(e1, "400")) {
		return None, true
	}

	// One target kept reading messages the other never saw.
	if absent1 != absent2 {
		return StreamDiscrepancy, false
	}

	req1, accepted1 := e1.(httpmsg.Request)
	req2, accepted2 := e2.(httpmsg.Request)

	// Accept/reject asymmetry: benign only if a profile quirk explains it.
	if accepted1 != accepted2 {
		var accepted httpmsg.Request
		var acceptedBy, rejectedBy *profile.Profile
		var rejection httpmsg.Response
		if accepted1 {
			accepted, acceptedBy = req1, p1
			rejection, rejectedBy = e2.(httpmsg.Response), p2
		} else {
			accepted, acceptedBy = req2, p2
			rejection, rejectedBy = e1.(httpmsg.Response), p1
		}
		if benignRejection(rejection, rejectedBy, accepted, acceptedBy) {
			return None, true
		}
		return StatusDiscrepancy, false
	}

	// Both accepted: normalize symmetrically and compare structure.
	if accepted1 && accepted2 {
		n1 := Normalize(req1, p1, p2)
		n2 := Normalize(req2, p2, p1)
		if !n1.Equal(n2) {
			return SubtleDiscrepancy, false
		}
	}

	// Both rejected, both absent, or both accepted and equal.
	return None, false
}

// benignRejection reports whether a rejection on one side, against an
// accepted request on the other, is explained by the rejecting server's
// known quirks. Checks run in a fixed order; the first match wins.
func benignRejection(rej httpmsg.Response, rejProf *profile.Profile, req httpmsg.Request, reqProf *profile.Profile) bool {
	// The accepting side fell back to HTTP/0.9 and the rejecter does not
	// allow 0.9 at all.
	if req.Version == httpmsg.Version09 && !rejProf.AllowsHTTP09 {
		return true
	}

	// 411 against a POST without a declared length, where only the
	// rejecter insists on one.
	if rej.Code == "411" && rejProf.RequiresLengthInPOST &&
		req.Method == "POST" && !reqProf.RequiresLengthInPOST {
		return true
	}

	// Host header strictness mismatch on a request that indeed carries
	// no Host.
	if rej.Code == "400" && !rejProf.AllowsMissingHost &&
		reqProf.AllowsMissingHost && !req.HasHeader("Host") {
		return true
	}

	// The method is simply not on the rejecter's allow-list.
	if rejProf.MethodAllowlist != nil && !rejProf.AllowsMethod(req.Method) {
		return true
	}

	// The method contains a byte the rejecter forbids in method tokens.
	if rejProf.ForbidsMethodChar(req.Method) {
		return true
	}

	return false
}

func isRejection(e httpmsg.Entry, code string) bool {
	resp, ok := e.(httpmsg.Response)
	return ok && resp.Code == code
}
