// Package corpus keeps the campaign's seed streams. Seeds are indexed by
// token over Roaring bitmaps so the harness can pull seeds that share
// features with whatever just produced a finding, and an LRU digest cache
// suppresses re-sending byte streams already tried this campaign.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"math/rand"
	"strings"
	"sync"
	"unicode"

	"github.com/RoaringBitmap/roaring/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSeeds are the byte streams a campaign starts from when the
// operator supplies none: a plain GET, a length-framed POST and a chunked
// POST, covering the three framing modes.
func DefaultSeeds() [][][]byte {
	return [][][]byte{
		{[]byte("GET / HTTP/1.1\r\nHost: a\r\n\r\n")},
		{[]byte("POST / HTTP/1.1\r\nContent-Length: 10\r\nHost: b\r\n\r\n0123456789")},
		{[]byte("POST / HTTP/1.1\r\nHost: c\r\nTransfer-Encoding: chunked\r\n\r\n5\r\n01234\r\n0\r\n\r\n")},
	}
}

// Store is a thread-safe seed pool.
type Store struct {
	mu       sync.RWMutex
	seeds    [][][]byte
	idxToken map[string]*roaring.Bitmap

	tried *lru.Cache[string, struct{}]
}

// New creates a store whose tried-digest cache holds up to maxTried
// entries.
func New(maxTried int) (*Store, error) {
	tried, err := lru.New[string, struct{}](maxTried)
	if err != nil {
		return nil, err
	}
	return &Store{
		idxToken: make(map[string]*roaring.Bitmap),
		tried:    tried,
	}, nil
}

// Add stores a seed and indexes its tokens. Returns the seed's ID.
func (s *Store) Add(seed [][]byte) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uint32(len(s.seeds))
	s.seeds = append(s.seeds, cloneStream(seed))

	for _, token := range tokenizeStream(seed) {
		bm, ok := s.idxToken[token]
		if !ok {
			bm = roaring.New()
			s.idxToken[token] = bm
		}
		bm.Add(id)
	}
	return id
}

// Len returns the number of stored seeds.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seeds)
}

// Pick returns a uniformly random seed. Panics if the store is empty; a
// harness always loads seeds before iterating.
func (s *Store) Pick(rng *rand.Rand) [][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.seeds) == 0 {
		panic("corpus: pick from empty store")
	}
	return cloneStream(s.seeds[rng.Intn(len(s.seeds))])
}

// PickRelated returns a random seed sharing at least one token with the
// reference stream, or any seed when nothing overlaps.
func (s *Store) PickRelated(rng *rand.Rand, reference [][]byte) [][]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.seeds) == 0 {
		panic("corpus: pick from empty store")
	}

	matches := roaring.New()
	for _, token := range tokenizeStream(reference) {
		if bm, ok := s.idxToken[token]; ok {
			matches.Or(bm)
		}
	}
	if matches.IsEmpty() {
		return cloneStream(s.seeds[rng.Intn(len(s.seeds))])
	}

	ids := matches.ToArray()
	return cloneStream(s.seeds[ids[rng.Intn(len(ids))]])
}

// MarkTried records the stream's digest. Returns false if the exact bytes
// were already tried this campaign.
func (s *Store) MarkTried(stream [][]byte) bool {
	d := digest(stream)
	if _, seen := s.tried.Get(d); seen {
		return false
	}
	s.tried.Add(d, struct{}{})
	return true
}

func digest(stream [][]byte) string {
	h := sha256.New()
	for _, seg := range stream {
		// Separator keeps segment boundaries part of the identity:
		// ["ab","c"] and ["a","bc"] read differently on the wire when
		// segment delays apply.
		h.Write([]byte{0})
		h.Write(seg)
	}
	return hex.EncodeToString(h.Sum(nil))
}

const tokenDelimiters = "/?&=.-_:;,"

// tokenizeStream extracts lowercase tokens of 2+ characters from every
// segment, splitting on HTTP-ish delimiters and whitespace.
func tokenizeStream(stream [][]byte) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, seg := range stream {
		tokens := strings.FieldsFunc(strings.ToLower(string(seg)), func(r rune) bool {
			return strings.ContainsRune(tokenDelimiters, r) || unicode.IsSpace(r) || !unicode.IsPrint(r)
		})
		for _, token := range tokens {
			if len(token) < 2 {
				continue
			}
			if _, dup := seen[token]; dup {
				continue
			}
			seen[token] = struct{}{}
			out = append(out, token)
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
