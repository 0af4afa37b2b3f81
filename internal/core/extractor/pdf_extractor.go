package extractor

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"

	"github.com/NdodaEnde/doc-processor/internal/models"
)

// Span is one run of text together with its normalized location.
type Span struct {
	Text string
	Box  models.Box
}

// SpanSource yields (text, box) pairs for a document, in document order.
type SpanSource interface {
	ExtractSpans(path string) ([]Span, error)
}

var _ SpanSource = (*PDFExtractor)(nil)

// PDFExtractor reads positioned text from a PDF and normalizes every span's
// edges to the unit square of its page. When a document carries no positioned
// text at all (scanned or unusual generators), it falls back to docconv plain
// text with synthesized full-width line boxes.
type PDFExtractor struct {
	// DisableFallback skips the docconv pass; used where positioned
	// output is mandatory.
	DisableFallback bool
}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractSpans opens the PDF and walks its pages in order. Open or parse
// failures propagate; callers convert them into per-document failures.
func (e *PDFExtractor) ExtractSpans(path string) ([]Span, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	var spans []Span
	totalPages := reader.NumPage()

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		fragments := readPageFragments(page)
		if len(fragments) == 0 {
			continue
		}

		width, height := pageDimensions(page)
		for _, line := range groupIntoLines(fragments) {
			text := strings.TrimSpace(line.text)
			if text == "" {
				continue
			}
			spans = append(spans, Span{
				Text: text,
				Box:  line.normalize(width, height, pageNum-1),
			})
		}
	}

	if len(spans) == 0 && !e.DisableFallback {
		return e.fallbackSpans(path)
	}
	return spans, nil
}

// readPageFragments pulls the page's raw positioned text, recovering from
// panics the underlying reader raises on malformed content streams.
func readPageFragments(page pdf.Page) (fragments []pdf.Text) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("extractor: recovered reading page content: %v", r)
			fragments = nil
		}
	}()
	return page.Content().Text
}

// line accumulates fragments sharing a baseline.
type line struct {
	text     string
	y        float64
	left     float64
	right    float64
	fontSize float64
	lastX    float64
	lastW    float64
}

const baselineTolerance = 2.0 // points

// groupIntoLines merges per-glyph fragments into baseline runs. Fragments on
// the same baseline (within tolerance) become one span, left to right.
func groupIntoLines(fragments []pdf.Text) []*line {
	sorted := make([]pdf.Text, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if abs(sorted[i].Y-sorted[j].Y) > baselineTolerance {
			return sorted[i].Y > sorted[j].Y // top of page first
		}
		return sorted[i].X < sorted[j].X
	})

	var lines []*line
	var cur *line
	for _, t := range sorted {
		if cur == nil || abs(t.Y-cur.y) > baselineTolerance {
			cur = &line{
				text: t.S, y: t.Y,
				left: t.X, right: t.X + t.W,
				fontSize: t.FontSize,
				lastX:    t.X, lastW: t.W,
			}
			lines = append(lines, cur)
			continue
		}
		// Insert a space across visible horizontal gaps; glyph runs with
		// unknown widths just concatenate.
		if cur.lastW > 0 && t.X-(cur.lastX+cur.lastW) > cur.fontSize*0.2 {
			cur.text += " "
		}
		cur.text += t.S
		if t.X < cur.left {
			cur.left = t.X
		}
		if t.X+t.W > cur.right {
			cur.right = t.X + t.W
		}
		if t.FontSize > cur.fontSize {
			cur.fontSize = t.FontSize
		}
		cur.lastX, cur.lastW = t.X, t.W
	}
	return lines
}

// normalize converts the line's PDF-point geometry (origin bottom-left) into
// top-left fractional coordinates. The ascender/descender split around the
// baseline is approximated from the font size.
func (l *line) normalize(pageWidth, pageHeight float64, pageIndex int) models.Box {
	ascent := l.fontSize * 0.8
	descent := l.fontSize * 0.2
	return models.Box{
		Left:   l.left / pageWidth,
		Top:    (pageHeight - (l.y + ascent)) / pageHeight,
		Right:  l.right / pageWidth,
		Bottom: (pageHeight - (l.y - descent)) / pageHeight,
		Page:   pageIndex,
	}
}

// Letter-size defaults for pages without a resolvable MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// pageDimensions resolves the page's MediaBox, walking up the page tree for
// inherited boxes.
func pageDimensions(page pdf.Page) (width, height float64) {
	defer func() {
		if r := recover(); r != nil {
			width, height = defaultPageWidth, defaultPageHeight
		}
	}()

	node := page.V
	for !node.IsNull() {
		mediaBox := node.Key("MediaBox")
		if !mediaBox.IsNull() && mediaBox.Kind() == pdf.Array && mediaBox.Len() >= 4 {
			coords := make([]float64, 4)
			for i := 0; i < 4; i++ {
				v := mediaBox.Index(i)
				switch v.Kind() {
				case pdf.Integer:
					coords[i] = float64(v.Int64())
				case pdf.Real:
					coords[i] = v.Float64()
				default:
					return defaultPageWidth, defaultPageHeight
				}
			}
			w, h := coords[2]-coords[0], coords[3]-coords[1]
			if w > 0 && h > 0 {
				return w, h
			}
		}
		node = node.Key("Parent")
	}
	return defaultPageWidth, defaultPageHeight
}

// fallbackSpans extracts plain text with docconv and stacks the lines down a
// single synthetic page. Geometry is approximate; callers get usable captions
// at the cost of box fidelity.
func (e *PDFExtractor) fallbackSpans(path string) ([]Span, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return nil, fmt.Errorf("docconv fallback for %s: %w", path, err)
	}

	var spans []Span
	top := 0.05
	for _, raw := range strings.Split(res.Body, "\n") {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		spans = append(spans, Span{
			Text: text,
			Box: models.Box{
				Left: 0.05, Top: top, Right: 0.95, Bottom: top + 0.03,
				Page: 0,
			},
		})
		top += 0.035
	}
	if len(spans) > 0 {
		log.Printf("extractor: no positioned text in %s, used docconv fallback (%d lines)", path, len(spans))
	}
	return spans, nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
