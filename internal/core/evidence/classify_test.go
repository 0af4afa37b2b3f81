package evidence

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

func TestDetectShape(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want InputShape
	}{
		{
			name: "canonical records",
			raw:  `{"report.pdf:1": [{"bboxes": [[0.1,0.1,0.4,0.1]], "captions": ["x"]}]}`,
			want: ShapeCanonical,
		},
		{
			name: "raw file to pages",
			raw:  `{"/tmp/report.pdf": {"0": [{"text": "x", "bbox": {"left": 0.1}}]}}`,
			want: ShapeRawPages,
		},
		{
			name: "inner mapping without lists",
			raw:  `{"report.pdf:1": {"note": "not pages"}}`,
			want: ShapeCanonical,
		},
		{name: "empty", raw: `{}`, want: ShapeCanonical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectShape(decode(t, tt.raw)))
		})
	}
}

func fixedScore() float64 { return 0.75 }

func TestFlattenForRanking_Canonical(t *testing.T) {
	input := decode(t, `{
		"report.pdf:2": [
			{"bboxes": [[0.1,0.2,0.4,0.1]], "captions": ["revenue line"], "score": 0.9},
			{"bboxes": [[0.1,0.5,0.4,0.1]], "captions": ["unscored line"]}
		]
	}`)

	chunks := FlattenForRanking(input, "what is revenue?", fixedScore)
	require.Len(t, chunks, 2)

	byCaption := map[string]int{}
	for i, c := range chunks {
		assert.Equal(t, "report.pdf", c.File)
		assert.Equal(t, 2, c.Page)
		assert.Equal(t, "This text is relevant to the question: what is revenue?", c.Reason)
		byCaption[c.Captions[0]] = i
	}
	assert.Equal(t, 0.9, chunks[byCaption["revenue line"]].Score)
	assert.Equal(t, 0.75, chunks[byCaption["unscored line"]].Score)
}

func TestFlattenForRanking_CanonicalFrontendChunks(t *testing.T) {
	// Frontend callers post chunk records with bbox/text instead of the
	// canonical bboxes/captions pair.
	input := decode(t, `{
		"scan.pdf:1": [
			{"text": "hello", "bbox": {"left": 0.1, "top": 0.2, "right": 0.5, "bottom": 0.3}, "relevance_score": 0.6}
		]
	}`)

	chunks := FlattenForRanking(input, "q", fixedScore)
	require.Len(t, chunks, 1)
	assert.Equal(t, "scan.pdf", chunks[0].File)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, []string{"hello"}, chunks[0].Captions)
	assert.InDeltaSlice(t, []float64{0.1, 0.2, 0.4, 0.1}, chunks[0].BBoxes[0], 1e-9)
	assert.Equal(t, 0.6, chunks[0].Score)
}

func TestFlattenForRanking_RawPages(t *testing.T) {
	input := decode(t, `{
		"/tmp/uploads/abc_scan.pdf": {
			"0": [{"text": "first page text", "bbox": [0.1, 0.1, 0.9, 0.2]}],
			"3": [{"text": "later page text", "bbox": {"left": 0.2, "top": 0.2, "right": 0.4, "bottom": 0.4}}]
		}
	}`)

	chunks := FlattenForRanking(input, "q", fixedScore)
	require.Len(t, chunks, 2)

	byPage := map[int]int{}
	for i, c := range chunks {
		assert.Equal(t, "abc_scan.pdf", c.File)
		byPage[c.Page] = i
	}
	require.Contains(t, byPage, 0)
	require.Contains(t, byPage, 3)
	assert.Equal(t, []string{"first page text"}, chunks[byPage[0]].Captions)
	assert.InDeltaSlice(t, []float64{0.1, 0.1, 0.8, 0.1}, chunks[byPage[0]].BBoxes[0], 1e-9)
	assert.InDeltaSlice(t, []float64{0.2, 0.2, 0.2, 0.2}, chunks[byPage[3]].BBoxes[0], 1e-9)
}

func TestFlattenForRanking_SkipsUninterpretable(t *testing.T) {
	input := decode(t, `{
		"report.pdf:1": [{"bboxes": [[0.1,0.1,0.1,0.1]], "captions": ["kept"]}, "not a record", 42],
		"no-page-separator": [{"captions": ["dropped"]}]
	}`)

	chunks := FlattenForRanking(input, "q", fixedScore)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"kept"}, chunks[0].Captions)
}

func TestFlattenForRanking_PlaceholderBox(t *testing.T) {
	input := decode(t, `{"f.pdf:1": [{"text": "no box here"}]}`)

	chunks := FlattenForRanking(input, "q", fixedScore)
	require.Len(t, chunks, 1)
	assert.InDeltaSlice(t, []float64{0, 0, 0.1, 0.1}, chunks[0].BBoxes[0], 1e-9)
}
