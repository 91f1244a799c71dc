package segment

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/gregorydickson/loan-sub001/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSegmenter(t *testing.T, maxChars, overlap int) *Segmenter {
	t.Helper()
	s, err := NewSegmenter(maxChars, overlap)
	require.NoError(t, err)
	return s
}

func assertCoverage(t *testing.T, text string, segments []model.TextSegment) {
	t.Helper()
	runes := []rune(text)
	require.NotEmpty(t, segments)

	assert.Equal(t, 0, segments[0].StartOffset, "first segment must start at 0")
	assert.Equal(t, len(runes), segments[len(segments)-1].EndOffset, "last segment must end at len(text)")

	for i, seg := range segments {
		assert.Equal(t, i, seg.Index)
		assert.Equal(t, len(segments), seg.TotalCount)
		assert.Equal(t, string(runes[seg.StartOffset:seg.EndOffset]), seg.Text)
		if i > 0 {
			assert.LessOrEqual(t, seg.StartOffset, segments[i-1].EndOffset, "gap before segment %d", i)
			assert.Greater(t, seg.StartOffset, segments[i-1].StartOffset, "segment %d does not advance", i)
		}
	}
}

func TestNewSegmenter_Validation(t *testing.T) {
	_, err := NewSegmenter(0, 0)
	assert.Error(t, err)

	_, err = NewSegmenter(100, 100)
	assert.Error(t, err)

	_, err = NewSegmenter(100, -1)
	assert.Error(t, err)

	_, err = NewSegmenter(16000, 800)
	assert.NoError(t, err)
}

func TestSegment_ShortText(t *testing.T) {
	s := mustSegmenter(t, 100, 20)

	for _, text := range []string{"", "short", strings.Repeat("x", 100)} {
		segments := s.Segment(text)
		require.Len(t, segments, 1)
		assert.Equal(t, text, segments[0].Text)
		assert.Equal(t, 0, segments[0].StartOffset)
		assert.Equal(t, len(text), segments[0].EndOffset)
		assert.Equal(t, 0, segments[0].Index)
		assert.Equal(t, 1, segments[0].TotalCount)
	}
}

func TestSegment_PrefersParagraphBreakInBoundaryZone(t *testing.T) {
	s := mustSegmenter(t, 100, 20)
	text := strings.Repeat("a", 85) + "\n\n" + strings.Repeat("b", 163)

	segments := s.Segment(text)

	assert.Equal(t, 87, segments[0].EndOffset)
	assert.True(t, strings.HasSuffix(segments[0].Text, "\n\n"))
	assert.Equal(t, 67, segments[1].StartOffset, "next segment starts overlap chars before the cut")
	assertCoverage(t, text, segments)
}

func TestSegment_IgnoresBreakOutsideBoundaryZone(t *testing.T) {
	s := mustSegmenter(t, 100, 20)
	text := strings.Repeat("a", 50) + "\n\n" + strings.Repeat("b", 198)

	segments := s.Segment(text)

	assert.Equal(t, 100, segments[0].EndOffset)
	assert.Equal(t, 80, segments[1].StartOffset)
	assertCoverage(t, text, segments)
}

func TestSegment_HardCutWithoutBreaks(t *testing.T) {
	s := mustSegmenter(t, 100, 20)
	text := strings.Repeat("z", 260)

	segments := s.Segment(text)

	require.Len(t, segments, 3)
	assert.Equal(t, [][2]int{{0, 100}, {80, 180}, {160, 260}}, spans(segments))
	assertCoverage(t, text, segments)
}

func TestSegment_RuneOffsets(t *testing.T) {
	s := mustSegmenter(t, 10, 2)
	text := strings.Repeat("é", 25)

	segments := s.Segment(text)

	assertCoverage(t, text, segments)
	for _, seg := range segments {
		assert.LessOrEqual(t, len([]rune(seg.Text)), 10)
	}
}

func TestSegment_CoverageProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alphabet := []rune("abc def\n\n\nxyz.")

	for i := 0; i < 200; i++ {
		maxChars := 10 + rng.Intn(90)
		overlap := rng.Intn(maxChars / 2)
		length := rng.Intn(600)

		var b strings.Builder
		for j := 0; j < length; j++ {
			b.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
		text := b.String()

		s := mustSegmenter(t, maxChars, overlap)
		segments := s.Segment(text)
		assertCoverage(t, text, segments)

		if len([]rune(text)) <= maxChars {
			assert.Len(t, segments, 1)
		}
	}
}

func spans(segments []model.TextSegment) [][2]int {
	out := make([][2]int, len(segments))
	for i, seg := range segments {
		out[i] = [2]int{seg.StartOffset, seg.EndOffset}
	}
	return out
}
