package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/httpdelta/internal/profile"
	"github.com/usestring/httpdelta/pkg/httpmsg"
)

func get(headers ...httpmsg.Header) httpmsg.Request {
	return httpmsg.Request{Method: "GET", Target: "/", Version: httpmsg.Version11, Headers: headers}
}

func post(headers ...httpmsg.Header) httpmsg.Request {
	return httpmsg.Request{Method: "POST", Target: "/", Version: httpmsg.Version11, Headers: headers}
}

func reject(code string) httpmsg.Response {
	return httpmsg.Response{Code: code}
}

func hdr(name, value string) httpmsg.Header {
	return httpmsg.Header{Name: name, Value: value}
}

func plain(name string) *profile.Profile {
	return &profile.Profile{Name: name, SupportsPersistence: true, AllowsMissingHost: true}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		seqs     []httpmsg.ResultSequence
		profiles []*profile.Profile
		want     Discrepancy
	}{
		{
			name: "identical accepted requests",
			seqs: []httpmsg.ResultSequence{
				{get()},
				{get()},
			},
			profiles: []*profile.Profile{plain("a"), plain("b")},
			want:     None,
		},
		{
			name: "clean 400 against silent close",
			seqs: []httpmsg.ResultSequence{
				{reject("400")},
				{httpmsg.Absent{}},
			},
			profiles: []*profile.Profile{plain("a"), plain("b")},
			want:     None,
		},
		{
			name: "length-required rejection is profile-known",
			seqs: []httpmsg.ResultSequence{
				{post()},
				{reject("411")},
			},
			profiles: []*profile.Profile{
				plain("a"),
				{Name: "b", SupportsPersistence: true, RequiresLengthInPOST: true},
			},
			want: None,
		},
		{
			name: "host values differ after normalization",
			seqs: []httpmsg.ResultSequence{
				{get(hdr("Host", "a"))},
				{get(hdr("Host", "b"))},
			},
			profiles: []*profile.Profile{plain("a"), plain("b")},
			want:     SubtleDiscrepancy,
		},
		{
			name: "one target parses a second message the other never saw",
			seqs: []httpmsg.ResultSequence{
				{get(), get()},
				{get(), httpmsg.Absent{}},
			},
			profiles: []*profile.Profile{plain("a"), plain("b")},
			want:     StreamDiscrepancy,
		},
		{
			name: "injected tracing header cancels out",
			seqs: []httpmsg.ResultSequence{
				{get(hdr("Host", "x"), hdr("X-Trace", "1"))},
				{get(hdr("Host", "x"))},
			},
			profiles: []*profile.Profile{
				{Name: "a", SupportsPersistence: true, AllowsMissingHost: true, AddedHeaders: []string{"X-Trace"}},
				plain("b"),
			},
			want: None,
		},
		{
			name: "unexplained rejection",
			seqs: []httpmsg.ResultSequence{
				{get(hdr("Host", "x"))},
				{reject("400")},
			},
			profiles: []*profile.Profile{plain("a"), plain("b")},
			want:     StatusDiscrepancy,
		},
		{
			name: "0.9 fallback against a server that disallows 0.9",
			seqs: []httpmsg.ResultSequence{
				{httpmsg.Request{Method: "GET", Target: "/", Version: httpmsg.Version09}},
				{reject("400")},
			},
			profiles: []*profile.Profile{
				{Name: "a", SupportsPersistence: true, AllowsHTTP09: true, AllowsMissingHost: true},
				plain("b"),
			},
			want: None,
		},
		{
			name: "missing host rejected only by the strict side",
			seqs: []httpmsg.ResultSequence{
				{get()},
				{reject("400")},
			},
			profiles: []*profile.Profile{
				plain("a"),
				{Name: "b", SupportsPersistence: true},
			},
			want: None,
		},
		{
			name: "host present so strictness does not explain the 400",
			seqs: []httpmsg.ResultSequence{
				{get(hdr("Host", "x"))},
				{reject("400")},
			},
			profiles: []*profile.Profile{
				plain("a"),
				{Name: "b", SupportsPersistence: true},
			},
			want: StatusDiscrepancy,
		},
		{
			name: "method off the rejecter's allow-list",
			seqs: []httpmsg.ResultSequence{
				{httpmsg.Request{Method: "BREW", Target: "/", Version: httpmsg.Version11}},
				{reject("501")},
			},
			profiles: []*profile.Profile{
				plain("a"),
				{Name: "b", SupportsPersistence: true, AllowsMissingHost: true, MethodAllowlist: []string{"GET", "POST"}},
			},
			want: None,
		},
		{
			name: "method containing a forbidden byte",
			seqs: []httpmsg.ResultSequence{
				{httpmsg.Request{Method: "GE\tT", Target: "/", Version: httpmsg.Version11}},
				{reject("400")},
			},
			profiles: []*profile.Profile{
				plain("a"),
				{Name: "b", SupportsPersistence: true, AllowsMissingHost: true, ForbiddenMethodChars: []byte{'\t'}},
			},
			want: None,
		},
		{
			name: "both rejected",
			seqs: []httpmsg.ResultSequence{
				{reject("400")},
				{reject("411")},
			},
			profiles: []*profile.Profile{plain("a"), plain("b")},
			want:     None,
		},
		{
			name: "disagreement at a later position",
			seqs: []httpmsg.ResultSequence{
				{get(hdr("Host", "x")), get(hdr("Host", "y"))},
				{get(hdr("Host", "x")), get(hdr("Host", "z"))},
			},
			profiles: []*profile.Profile{plain("a"), plain("b")},
			want:     SubtleDiscrepancy,
		},
		{
			name: "three targets, discrepancy in the second pair",
			seqs: []httpmsg.ResultSequence{
				{get(hdr("Host", "x"))},
				{get(hdr("Host", "x"))},
				{get(hdr("Host", "y"))},
			},
			profiles: []*profile.Profile{plain("a"), plain("b"), plain("c")},
			want:     SubtleDiscrepancy,
		},
		{
			name: "graceful end settles the pair before later positions",
			seqs: []httpmsg.ResultSequence{
				{reject("400"), get(hdr("Host", "x"))},
				{httpmsg.Absent{}, get(hdr("Host", "y"))},
			},
			profiles: []*profile.Profile{plain("a"), plain("b")},
			want:     None,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.seqs, tt.profiles))
		})
	}
}

// Swapping server order never changes the verdict.
func TestClassifySymmetry(t *testing.T) {
	strict := &profile.Profile{Name: "strict", SupportsPersistence: true, RequiresLengthInPOST: true}
	lenient := plain("lenient")

	cases := []struct {
		name string
		seqA httpmsg.ResultSequence
		seqB httpmsg.ResultSequence
		pA   *profile.Profile
		pB   *profile.Profile
	}{
		{"accept vs reject", httpmsg.ResultSequence{post()}, httpmsg.ResultSequence{reject("411")}, lenient, strict},
		{"subtle", httpmsg.ResultSequence{get(hdr("Host", "a"))}, httpmsg.ResultSequence{get(hdr("Host", "b"))}, lenient, lenient},
		{"stream", httpmsg.ResultSequence{get(), get()}, httpmsg.ResultSequence{get()}, lenient, lenient},
		{"clean end", httpmsg.ResultSequence{reject("400")}, httpmsg.ResultSequence{httpmsg.Absent{}}, strict, lenient},
		{"status", httpmsg.ResultSequence{get(hdr("Host", "x"))}, httpmsg.ResultSequence{reject("500")}, lenient, lenient},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			forward := Classify([]httpmsg.ResultSequence{tc.seqA, tc.seqB}, []*profile.Profile{tc.pA, tc.pB})
			backward := Classify([]httpmsg.ResultSequence{tc.seqB, tc.seqA}, []*profile.Profile{tc.pB, tc.pA})
			assert.Equal(t, forward, backward)
		})
	}
}

// A target never disagrees with itself.
func TestClassifyReflexivity(t *testing.T) {
	sequences := []httpmsg.ResultSequence{
		{get(hdr("Host", "a"), hdr("X-Trace", "1"))},
		{reject("400")},
		{httpmsg.Absent{}},
		{get(), reject("411"), httpmsg.Absent{}},
		{},
	}
	prof := &profile.Profile{
		Name:                "self",
		SupportsPersistence: true,
		AddedHeaders:        []string{"X-Trace"},
		HeaderNameTranslation: map[string]string{
			"X-Real-Ip": "X-Forwarded-For",
		},
	}

	for _, seq := range sequences {
		got := Classify(
			[]httpmsg.ResultSequence{seq, seq},
			[]*profile.Profile{prof, prof},
		)
		assert.Equal(t, None, got)
	}
}

// With persistence disabled on either side only position 0 is compared.
func TestClassifyPersistenceTruncation(t *testing.T) {
	oneshot := &profile.Profile{Name: "oneshot", AllowsMissingHost: true}
	keep := plain("keep")

	seqA := httpmsg.ResultSequence{get(), get(hdr("Host", "a"))}
	seqB := httpmsg.ResultSequence{get()}

	// Position 1 would be a stream discrepancy, but the one-shot profile
	// makes it unreachable.
	got := Classify([]httpmsg.ResultSequence{seqA, seqB}, []*profile.Profile{oneshot, keep})
	assert.Equal(t, None, got)

	// With persistence on both sides the same input is a finding.
	got = Classify([]httpmsg.ResultSequence{seqA, seqB}, []*profile.Profile{keep, keep})
	assert.Equal(t, StreamDiscrepancy, got)
}

func TestClassifyLengthMismatchPanics(t *testing.T) {
	require.Panics(t, func() {
		Classify(
			[]httpmsg.ResultSequence{{get()}},
			[]*profile.Profile{plain("a"), plain("b")},
		)
	})
}

func TestBenignRejectionOrder(t *testing.T) {
	// A request that matches several exceptions at once must still be
	// benign; the checks are ordered but any match settles the pair.
	rejecter := &profile.Profile{
		Name:                 "rejecter",
		SupportsPersistence:  true,
		RequiresLengthInPOST: true,
		MethodAllowlist:      []string{"GET"},
	}
	accepter := plain("accepter")

	req := httpmsg.Request{Method: "POST", Target: "/", Version: httpmsg.Version11}
	assert.True(t, benignRejection(reject("411"), rejecter, req, accepter))

	// The allow-list alone also explains a non-411 rejection.
	assert.True(t, benignRejection(reject("405"), rejecter, req, accepter))
}
