package extractor

import (
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frag(s string, x, y, w, size float64) pdf.Text {
	return pdf.Text{S: s, X: x, Y: y, W: w, FontSize: size}
}

func TestGroupIntoLines_MergesBaseline(t *testing.T) {
	// Two glyph runs on one baseline, one on a lower baseline. Input order is
	// scrambled to exercise the sort.
	fragments := []pdf.Text{
		frag("world", 130, 700, 50, 12),
		frag("second line", 72, 680, 100, 12),
		frag("Hello", 72, 700.5, 50, 12),
	}

	lines := groupIntoLines(fragments)
	require.Len(t, lines, 2)

	// Gap between "Hello" (ends at 122) and "world" (starts at 130) exceeds
	// 0.2 * fontSize, so a space is inserted.
	assert.Equal(t, "Hello world", lines[0].text)
	assert.Equal(t, "second line", lines[1].text)

	assert.Equal(t, 72.0, lines[0].left)
	assert.Equal(t, 180.0, lines[0].right)
}

func TestGroupIntoLines_NoSpaceForAdjacentRuns(t *testing.T) {
	fragments := []pdf.Text{
		frag("Hel", 72, 700, 20, 12),
		frag("lo", 92, 700, 14, 12),
	}

	lines := groupIntoLines(fragments)
	require.Len(t, lines, 1)
	assert.Equal(t, "Hello", lines[0].text)
}

func TestGroupIntoLines_TopOfPageFirst(t *testing.T) {
	// PDF y grows upward, so the larger y is the visually higher line.
	fragments := []pdf.Text{
		frag("bottom", 72, 100, 40, 10),
		frag("top", 72, 700, 40, 10),
		frag("middle", 72, 400, 40, 10),
	}

	lines := groupIntoLines(fragments)
	require.Len(t, lines, 3)
	assert.Equal(t, "top", lines[0].text)
	assert.Equal(t, "middle", lines[1].text)
	assert.Equal(t, "bottom", lines[2].text)
}

func TestGroupIntoLines_Empty(t *testing.T) {
	assert.Empty(t, groupIntoLines(nil))
}

func TestLineNormalize(t *testing.T) {
	l := &line{y: 692, left: 61.2, right: 306, fontSize: 10}

	box := l.normalize(612, 792, 2)

	assert.InDelta(t, 0.1, box.Left, 1e-9)
	assert.InDelta(t, 0.5, box.Right, 1e-9)
	// Baseline 692, ascent 8, descent 2: top edge at 700, bottom at 690,
	// flipped into top-left fractions of a 792pt page.
	assert.InDelta(t, (792.0-700.0)/792.0, box.Top, 1e-9)
	assert.InDelta(t, (792.0-690.0)/792.0, box.Bottom, 1e-9)
	assert.Equal(t, 2, box.Page)
	assert.Less(t, box.Top, box.Bottom)
}

func TestExtractSpans_OpenFailure(t *testing.T) {
	e := NewPDFExtractor()
	e.DisableFallback = true

	_, err := e.ExtractSpans("/nonexistent/missing.pdf")
	assert.Error(t, err)
}
