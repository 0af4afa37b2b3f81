package evidence

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/NdodaEnde/doc-processor/internal/models"
)

// InputShape identifies which of the two accepted evidence shapes a caller
// supplied inline to the question endpoint.
type InputShape int

const (
	// ShapeCanonical is the persisted "<filename>:<page>" keyed mapping.
	ShapeCanonical InputShape = iota
	// ShapeRawPages is the parser-native file -> page -> chunk-list mapping.
	ShapeRawPages
)

// DetectShape classifies decoded evidence by structure: outermost values that
// are mappings whose inner values are lists mean the raw shape, anything else
// is treated as canonical. Classification happens once, here, rather than
// being re-probed at each consumer.
func DetectShape(input map[string]any) InputShape {
	for _, v := range input {
		inner, ok := v.(map[string]any)
		if !ok {
			return ShapeCanonical
		}
		for _, iv := range inner {
			if _, isList := iv.([]any); isList {
				return ShapeRawPages
			}
			return ShapeCanonical
		}
	}
	return ShapeCanonical
}

// FlattenForRanking turns either evidence shape into one flat candidate list
// for the mock ranking path. Every candidate carries its source file's base
// name, page, [x,y,w,h] box, caption, a reason referencing the question, and
// a stored or freshly synthesized relevance score. Entries that cannot be
// interpreted are skipped, matching the tolerant upstream behavior.
func FlattenForRanking(input map[string]any, question string, synthScore func() float64) []models.BestChunk {
	reason := "This text is relevant to the question: " + question

	if DetectShape(input) == ShapeRawPages {
		return flattenRawPages(input, reason, synthScore)
	}
	return flattenCanonical(input, reason, synthScore)
}

func flattenRawPages(input map[string]any, reason string, synthScore func() float64) []models.BestChunk {
	var all []models.BestChunk
	for path, pv := range input {
		pages, ok := pv.(map[string]any)
		if !ok {
			continue
		}
		filename := filepath.Base(path)
		for pageKey, cv := range pages {
			page := atoiOr(pageKey, 1)
			chunks, ok := cv.([]any)
			if !ok {
				continue
			}
			for _, c := range chunks {
				chunk, ok := c.(map[string]any)
				if !ok {
					continue
				}
				left, top, w, h := bboxOf(chunk["bbox"])
				all = append(all, models.BestChunk{
					File:     filename,
					Page:     page,
					BBoxes:   [][]float64{{left, top, w, h}},
					Captions: []string{stringOf(chunk["text"])},
					Reason:   reason,
					Score:    scoreOf(chunk, synthScore),
				})
			}
		}
	}
	return all
}

func flattenCanonical(input map[string]any, reason string, synthScore func() float64) []models.BestChunk {
	var all []models.BestChunk
	for key, cv := range input {
		idx := strings.LastIndex(key, ":")
		if idx <= 0 {
			continue
		}
		filename := key[:idx]
		page := atoiOr(key[idx+1:], 1)

		chunks, ok := cv.([]any)
		if !ok {
			continue
		}
		for _, c := range chunks {
			chunk, ok := c.(map[string]any)
			if !ok {
				continue
			}

			// Canonical records carry bboxes/captions already flattened;
			// frontend chunk records carry bbox/text instead.
			if bboxes, hasBoxes := chunk["bboxes"].([]any); hasBoxes {
				all = append(all, models.BestChunk{
					File:     filename,
					Page:     page,
					BBoxes:   floatMatrix(bboxes),
					Captions: stringsOf(chunk["captions"]),
					Reason:   reason,
					Score:    scoreOf(chunk, synthScore),
				})
				continue
			}
			left, top, w, h := bboxOf(chunk["bbox"])
			all = append(all, models.BestChunk{
				File:     filename,
				Page:     page,
				BBoxes:   [][]float64{{left, top, w, h}},
				Captions: []string{stringOf(chunk["text"])},
				Reason:   reason,
				Score:    scoreOf(chunk, synthScore),
			})
		}
	}
	return all
}

// bboxOf accepts either the edge dict {left,top,right,bottom} or an
// [l,t,r,b] list, returning x/y/w/h. Unrecognized input gets a small
// placeholder box rather than failing the whole question.
func bboxOf(v any) (left, top, w, h float64) {
	switch bbox := v.(type) {
	case map[string]any:
		l := floatOr(bbox["left"], 0)
		t := floatOr(bbox["top"], 0)
		r := floatOr(bbox["right"], 1)
		b := floatOr(bbox["bottom"], 1)
		return l, t, r - l, b - t
	case []any:
		if len(bbox) == 4 {
			l := floatOr(bbox[0], 0)
			t := floatOr(bbox[1], 0)
			r := floatOr(bbox[2], 0)
			b := floatOr(bbox[3], 0)
			return l, t, r - l, b - t
		}
	}
	return 0, 0, 0.1, 0.1
}

func scoreOf(chunk map[string]any, synth func() float64) float64 {
	if s, ok := chunk["score"].(float64); ok {
		return s
	}
	if s, ok := chunk["relevance_score"].(float64); ok {
		return s
	}
	return synth()
}

func floatMatrix(rows []any) [][]float64 {
	out := make([][]float64, 0, len(rows))
	for _, r := range rows {
		row, ok := r.([]any)
		if !ok {
			continue
		}
		vals := make([]float64, 0, len(row))
		for _, v := range row {
			vals = append(vals, floatOr(v, 0))
		}
		out = append(out, vals)
	}
	return out
}

func stringsOf(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, stringOf(it))
	}
	return out
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func floatOr(v any, def float64) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return def
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
