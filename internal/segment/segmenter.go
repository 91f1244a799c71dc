// Package segment splits long documents into overlapping windows for
// extraction-size-limited processing.
package segment

import (
	"fmt"

	"github.com/gregorydickson/loan-sub001/internal/model"
)

// ParagraphBreak is the blank-line separator preferred as a cut point
const ParagraphBreak = "\n\n"

// boundaryZone is the trailing fraction of a window searched for a paragraph break
const boundaryZone = 0.2

// Segmenter splits text into overlapping windows
type Segmenter struct {
	maxChars     int
	overlapChars int
}

// NewSegmenter creates a segmenter. Overlap must be smaller than the window.
func NewSegmenter(maxChars, overlapChars int) (*Segmenter, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("max chars must be > 0, got %d", maxChars)
	}
	if overlapChars < 0 || overlapChars >= maxChars {
		return nil, fmt.Errorf("overlap chars must be in [0, %d), got %d", maxChars, overlapChars)
	}
	return &Segmenter{maxChars: maxChars, overlapChars: overlapChars}, nil
}

// Segment splits text into windows covering [0, len(text)) without gaps.
// Offsets are rune positions.
func (s *Segmenter) Segment(text string) []model.TextSegment {
	runes := []rune(text)
	n := len(runes)

	if n <= s.maxChars {
		return []model.TextSegment{{
			Text:        text,
			StartOffset: 0,
			EndOffset:   n,
			Index:       0,
			TotalCount:  1,
		}}
	}

	var segments []model.TextSegment
	start := 0
	for {
		end := start + s.maxChars
		if end > n {
			end = n
		}

		if end < n {
			zoneStart := end - int(float64(s.maxChars)*boundaryZone)
			if p := lastBreak(runes, zoneStart, end); p > start {
				end = p + len(ParagraphBreak)
			}
		}

		segments = append(segments, model.TextSegment{
			Text:        string(runes[start:end]),
			StartOffset: start,
			EndOffset:   end,
			Index:       len(segments),
		})

		if end == n {
			break
		}

		next := end - s.overlapChars
		if next <= start {
			// A paragraph cut shorter than the overlap would stall the walk
			next = end
		}
		start = next
	}

	for i := range segments {
		segments[i].TotalCount = len(segments)
	}

	return segments
}

// lastBreak returns the rightmost position p in [from, to) where a complete
// paragraph break starts and ends before to, or -1.
func lastBreak(runes []rune, from, to int) int {
	if from < 0 {
		from = 0
	}
	for p := to - len(ParagraphBreak); p >= from; p-- {
		if runes[p] == '\n' && runes[p+1] == '\n' {
			return p
		}
	}
	return -1
}
