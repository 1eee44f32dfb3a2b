package combo

import (
	"encoding/binary"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"

	"github.com/erazemk/znamke/internal/model"
)

// Window is an inclusive value range.
type Window struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// Contains reports whether Min <= v <= Max.
func (w Window) Contains(v decimal.Decimal) bool {
	return v.Cmp(w.Min) >= 0 && v.Cmp(w.Max) <= 0
}

// Signature is the sorted list of catalog IDs in a combination, repeats
// included. Two combinations with equal signatures hold the same stamps
// regardless of which physical copies were picked.
type Signature []int64

// Compare orders signatures lexicographically.
func (s Signature) Compare(o Signature) int {
	return slices.Compare(s, o)
}

func (s Signature) digest() uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, id := range s {
		binary.LittleEndian.PutUint64(buf[:], uint64(id))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// Match is a qualifying subset: candidate indices, their total value and
// content signature.
type Match struct {
	Indices   []int
	Sum       decimal.Decimal
	Signature Signature
}

// matcher applies the value window and pin constraints to index subsets.
type matcher struct {
	values     []decimal.Decimal
	catalogIDs []int64
	window     Window
	pinned     []int64
}

func newMatcher(cands []model.InventoryItem, window Window, pinned []int64) *matcher {
	m := &matcher{
		values:     make([]decimal.Decimal, len(cands)),
		catalogIDs: make([]int64, len(cands)),
		window:     window,
		pinned:     pinned,
	}
	for i, c := range cands {
		m.values[i] = c.Value()
		m.catalogIDs[i] = c.CatalogID
	}
	return m
}

// match returns a Match for idx if it is inside the window and contains
// every pinned catalog item. idx is copied.
func (m *matcher) match(idx []int) (Match, bool) {
	sum := decimal.Zero
	for _, i := range idx {
		sum = sum.Add(m.values[i])
	}
	if !m.window.Contains(sum) {
		return Match{}, false
	}

	sig := make(Signature, len(idx))
	for j, i := range idx {
		sig[j] = m.catalogIDs[i]
	}
	slices.Sort(sig)
	for _, p := range m.pinned {
		if _, found := slices.BinarySearch(sig, p); !found {
			return Match{}, false
		}
	}

	return Match{Indices: slices.Clone(idx), Sum: sum, Signature: sig}, true
}

// signatureSet remembers which signatures were already emitted.
type signatureSet struct {
	buckets map[uint64][]Signature
}

func newSignatureSet() *signatureSet {
	return &signatureSet{buckets: make(map[uint64][]Signature)}
}

// add records sig and reports whether it was not seen before.
func (s *signatureSet) add(sig Signature) bool {
	h := sig.digest()
	for _, existing := range s.buckets[h] {
		if existing.Compare(sig) == 0 {
			return false
		}
	}
	s.buckets[h] = append(s.buckets[h], sig)
	return true
}

// Filter keeps subsets inside the value window that contain every pinned
// catalog item, dropping any whose signature was already accepted.
type Filter struct {
	m        *matcher
	seen     *signatureSet
	examined int64
}

// NewFilter returns a Filter over the given candidates. pinned must be
// sorted, as returned by PinnedCatalogIDs.
func NewFilter(cands []model.InventoryItem, window Window, pinned []int64) *Filter {
	return &Filter{
		m:    newMatcher(cands, window, pinned),
		seen: newSignatureSet(),
	}
}

// Accept examines one subset. It returns the match and true only the first
// time a qualifying signature is seen.
func (f *Filter) Accept(idx []int) (Match, bool) {
	f.examined++
	match, ok := f.m.match(idx)
	if !ok {
		return Match{}, false
	}
	return match, f.seen.add(match.Signature)
}

// Examined returns how many subsets Accept was called with.
func (f *Filter) Examined() int64 {
	return f.examined
}
