// Package evidence owns the canonical evidence schema: normalizing the two
// raw parser shapes into it, classifying inline evidence supplied by callers,
// and building the labeled demo evidence used in degraded mock mode.
package evidence

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/NdodaEnde/doc-processor/internal/models"
)

// Sentinel failures the process service folds into the batch record. Both
// imply the upstream likely failed silently, so both raise sdk_auth_error.
var (
	ErrNoValidChunks = errors.New("document processing completed but no valid chunks were extracted - API may have failed")
	ErrEmptyEvidence = errors.New("no text or evidence could be extracted from the document - API may have failed")
)

// Key builds the canonical composite key. Page is 1-based here.
func Key(filename string, page int) string {
	return fmt.Sprintf("%s:%d", filename, page)
}

// FlattenBox converts edge coordinates to the canonical [x, y, w, h] form.
// Malformed sources can yield negative width/height; that is passed through,
// downstream consumers tolerate it.
func FlattenBox(l, t, r, b float64) []float64 {
	return []float64{l, t, r - l, b - t}
}

// Normalize flattens a raw parse result into canonical evidence.
//
// Real-SDK shape: error-category chunks are skipped, each grounding becomes
// one record on its (0-based, surfaced 1-based) page, and the record is keyed
// by the upload's original filename, matched positionally.
//
// Mock shape: the engine emits 0-based pages keyed by file path; records are
// keyed by the chunk's display filename with the page surfaced 1-based, the
// same convention the real path produces.
func Normalize(result *models.ParseResult, filenames []string) (models.Evidence, error) {
	all := make(models.Evidence)

	if len(result.Documents) > 0 {
		if err := normalizeDocuments(result.Documents, filenames, all); err != nil {
			return nil, err
		}
	} else {
		normalizeFilePages(result.FilePages, all)
	}

	if len(all) == 0 {
		return nil, ErrEmptyEvidence
	}
	return all, nil
}

func normalizeDocuments(docs []models.ParsedDocument, filenames []string, all models.Evidence) error {
	for i, doc := range docs {
		filename := filepath.Base(doc.FilePath)
		if i < len(filenames) && filenames[i] != "" {
			filename = filenames[i]
		}

		hasValid := false
		for _, chunk := range doc.Chunks {
			if chunk.ChunkType != models.ChunkTypeError {
				hasValid = true
				break
			}
		}
		if !hasValid {
			// Upstream completed but produced nothing usable; treat the
			// whole batch as failed rather than returning holes.
			return ErrNoValidChunks
		}

		for _, chunk := range doc.Chunks {
			if chunk.ChunkType == models.ChunkTypeError {
				continue
			}
			for _, g := range chunk.Grounding {
				key := Key(filename, g.Page+1)
				all[key] = append(all[key], models.EvidenceRecord{
					BBoxes:   [][]float64{FlattenBox(g.Box.L, g.Box.T, g.Box.R, g.Box.B)},
					Captions: []string{chunk.Text},
				})
			}
		}
	}
	return nil
}

func normalizeFilePages(filePages map[string]models.PageChunks, all models.Evidence) {
	for path, pages := range filePages {
		for page, chunks := range pages {
			for _, chunk := range chunks {
				filename := chunk.Filename
				if filename == "" {
					filename = filepath.Base(path)
				}
				key := Key(filename, page+1)
				all[key] = append(all[key], models.EvidenceRecord{
					BBoxes:   [][]float64{FlattenBox(chunk.BBox.Left, chunk.BBox.Top, chunk.BBox.Right, chunk.BBox.Bottom)},
					Captions: []string{chunk.Text},
				})
			}
		}
	}
}
