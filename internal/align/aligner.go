// Package align translates and verifies character offsets between a
// reformatted document and the raw text it was produced from.
//
// All positions are rune offsets. Alignment is computed once per Aligner from
// the matching blocks of a longest-matching-subsequence diff; positions that
// fall between blocks are interpolated linearly across the gap.
package align

import (
	"github.com/pmezard/go-difflib/difflib"
)

// DefaultVerifyThreshold is the similarity ratio a span must reach to be trusted
const DefaultVerifyThreshold = 0.85

// Aligner maps spans of a reformatted text back to an optional raw text
type Aligner struct {
	text   []rune
	raw    []rune
	hasRaw bool
	blocks []difflib.Match
}

// New creates an aligner without raw text. AlignPositions always reports no mapping.
func New(text string) *Aligner {
	return &Aligner{text: []rune(text)}
}

// NewWithRaw creates an aligner and computes the alignment against raw
func NewWithRaw(text, raw string) *Aligner {
	a := &Aligner{
		text:   []rune(text),
		raw:    []rune(raw),
		hasRaw: true,
	}

	// autojunk off: on character sequences it would discard every common letter
	m := difflib.NewMatcherWithJunk(runeSeq(a.text), runeSeq(a.raw), false, nil)
	for _, b := range m.GetMatchingBlocks() {
		if b.Size > 0 {
			a.blocks = append(a.blocks, b)
		}
	}

	return a
}

// HasRaw reports whether a raw text was supplied
func (a *Aligner) HasRaw() bool {
	return a.hasRaw
}

// AlignPositions maps [start, end) in the reformatted text to the raw text.
// Each endpoint is nil when it cannot be mapped; both are nil without raw text.
func (a *Aligner) AlignPositions(start, end int) (rawStart, rawEnd *int) {
	if !a.hasRaw {
		return nil, nil
	}
	return a.mapPosition(start), a.mapPosition(end)
}

// mapPosition maps one position. Positions inside a block map by constant
// offset, a position on a block's end boundary maps to that block's raw end,
// and positions in a gap interpolate between the bracketing blocks.
func (a *Aligner) mapPosition(pos int) *int {
	if pos < 0 || pos > len(a.text) {
		return nil
	}

	var prev, next *difflib.Match
	for i := range a.blocks {
		b := &a.blocks[i]
		if pos >= b.A && pos < b.A+b.Size {
			mapped := b.B + (pos - b.A)
			return &mapped
		}
		if b.A+b.Size <= pos {
			prev = b
		} else if next == nil {
			next = b
		}
	}

	if prev != nil && prev.A+prev.Size == pos {
		mapped := prev.B + prev.Size
		return &mapped
	}

	if prev == nil || next == nil {
		return nil
	}

	gapStartA := prev.A + prev.Size
	gapStartB := prev.B + prev.Size
	gapA := next.A - gapStartA
	gapB := next.B - gapStartB

	ratio := float64(pos-gapStartA) / float64(gapA)
	mapped := gapStartB + int(ratio*float64(gapB)+0.5)
	return &mapped
}

// Substring returns text[start:end], or "" for out-of-range or empty spans
func (a *Aligner) Substring(start, end int) string {
	if start < 0 || end > len(a.text) || start >= end {
		return ""
	}
	return string(a.text[start:end])
}

// VerifySpan reports whether text[start:end] matches expected exactly or with
// a similarity ratio of at least threshold. Out-of-bounds spans never verify.
func (a *Aligner) VerifySpan(start, end int, expected string, threshold float64) bool {
	if start < 0 || end > len(a.text) || start > end {
		return false
	}

	actual := string(a.text[start:end])
	if actual == expected {
		return true
	}

	return Similarity(actual, expected) >= threshold
}

// Similarity returns the normalized match ratio (0-1) of two strings
func Similarity(a, b string) float64 {
	m := difflib.NewMatcherWithJunk(runeSeq([]rune(a)), runeSeq([]rune(b)), false, nil)
	return m.Ratio()
}

func runeSeq(runes []rune) []string {
	seq := make([]string, len(runes))
	for i, r := range runes {
		seq[i] = string(r)
	}
	return seq
}
