// Package mutate produces candidate byte streams from seeds. Mutations mix
// blind byte-level edits with targeted splices of known HTTP/1.1 ambiguity
// tokens; a reward table learns which tokens actually provoke disagreement
// between the configured targets and biases selection toward them.
package mutate

import (
	"math/rand"
)

// Engine mutates seed streams. It is safe for a single goroutine; the
// harness owns one engine per campaign.
type Engine struct {
	rng     *rand.Rand
	rewards *rewardTable

	// MaxMutations bounds how many edits one candidate receives.
	MaxMutations int
}

// NewEngine creates a mutation engine driven by the given source of
// randomness. Passing a seeded source makes a campaign reproducible.
func NewEngine(rng *rand.Rand) *Engine {
	return &Engine{
		rng:          rng,
		rewards:      newRewardTable(),
		MaxMutations: 4,
	}
}

// Mutate derives a new candidate stream from seed. It returns the mutated
// segments and the ambiguity tokens spliced in, so the caller can report
// rewards back once the candidate has been classified.
func (e *Engine) Mutate(seed [][]byte) ([][]byte, []string) {
	stream := cloneStream(seed)
	if len(stream) == 0 {
		stream = [][]byte{nil}
	}

	var used []string
	edits := 1 + e.rng.Intn(e.MaxMutations)
	for i := 0; i < edits; i++ {
		seg := e.rng.Intn(len(stream))
		switch e.rng.Intn(6) {
		case 0:
			stream[seg] = e.flipByte(stream[seg])
		case 1:
			stream[seg] = e.insertByte(stream[seg])
		case 2:
			stream[seg] = e.deleteByte(stream[seg])
		case 3:
			stream[seg] = e.duplicateSpan(stream[seg])
		case 4:
			stream[seg] = e.spliceAtLineBoundary(stream[seg])
		default:
			token := e.rewards.Choose(e.rng)
			stream[seg] = e.injectToken(stream[seg], token)
			used = append(used, token)
		}
	}
	return stream, used
}

// Reward attributes a classification outcome to the tokens used in the
// candidate that produced it.
func (e *Engine) Reward(tokens []string, reward float64) {
	for _, token := range tokens {
		e.rewards.Update(token, reward)
	}
}

func (e *Engine) flipByte(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	out := append([]byte(nil), data...)
	i := e.rng.Intn(len(out))
	out[i] ^= 1 << e.rng.Intn(8)
	return out
}

func (e *Engine) insertByte(data []byte) []byte {
	i := 0
	if len(data) > 0 {
		i = e.rng.Intn(len(data) + 1)
	}
	// Bias toward bytes that matter to HTTP parsing.
	interesting := []byte{'\r', '\n', ' ', '\t', ':', ';', ',', '0', 0x00, 0x0b, 0x1f, 0x7f}
	b := interesting[e.rng.Intn(len(interesting))]

	out := make([]byte, 0, len(data)+1)
	out = append(out, data[:i]...)
	out = append(out, b)
	return append(out, data[i:]...)
}

func (e *Engine) deleteByte(data []byte) []byte {
	if len(data) == 0 {
		return data
	}
	i := e.rng.Intn(len(data))
	out := make([]byte, 0, len(data)-1)
	out = append(out, data[:i]...)
	return append(out, data[i+1:]...)
}

func (e *Engine) duplicateSpan(data []byte) []byte {
	if len(data) < 2 {
		return data
	}
	start := e.rng.Intn(len(data))
	span := 1 + e.rng.Intn(len(data)-start)
	out := make([]byte, 0, len(data)+span)
	out = append(out, data[:start+span]...)
	out = append(out, data[start:start+span]...)
	return append(out, data[start+span:]...)
}

// spliceAtLineBoundary cuts the segment at a CRLF and swaps the halves,
// moving a framing boundary relative to the header block.
func (e *Engine) spliceAtLineBoundary(data []byte) []byte {
	boundaries := lineBoundaries(data)
	if len(boundaries) == 0 {
		return data
	}
	cut := boundaries[e.rng.Intn(len(boundaries))]
	out := make([]byte, 0, len(data))
	out = append(out, data[cut:]...)
	return append(out, data[:cut]...)
}

// injectToken splices an ambiguity token at a line boundary when one
// exists, otherwise at a random offset.
func (e *Engine) injectToken(data []byte, token string) []byte {
	pos := 0
	if boundaries := lineBoundaries(data); len(boundaries) > 0 {
		pos = boundaries[e.rng.Intn(len(boundaries))]
	} else if len(data) > 0 {
		pos = e.rng.Intn(len(data) + 1)
	}
	out := make([]byte, 0, len(data)+len(token))
	out = append(out, data[:pos]...)
	out = append(out, token...)
	return append(out, data[pos:]...)
}

// lineBoundaries returns the offsets just past each CRLF.
func lineBoundaries(data []byte) []int {
	var out []int
	for i := 0; i+1 < len(data); i++ {
		if data[i] == '\r' && data[i+1] == '\n' {
			out = append(out, i+2)
		}
	}
	return out
}

func cloneStream(stream [][]byte) [][]byte {
	out := make([][]byte, len(stream))
	for i, seg := range stream {
		out[i] = append([]byte(nil), seg...)
	}
	return out
}
