// Package mocksdk approximates the document-understanding SDK with local PDF
// text extraction. It exists so the full pipeline can run without live
// credentials; output shape matches what the evidence normalizer expects from
// the mock path.
package mocksdk

import (
	"context"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/NdodaEnde/doc-processor/internal/core"
	"github.com/NdodaEnde/doc-processor/internal/core/extractor"
	"github.com/NdodaEnde/doc-processor/internal/models"
)

var _ core.DocumentParser = (*Engine)(nil)

// Options configures the engine. The knobs cover the behaviors that diverged
// between the historical copies of this mock: latency simulation and display
// title attachment.
type Options struct {
	// SimulateLatency sleeps per file, scaled to file size, to mimic a
	// network-bound parsing service.
	SimulateLatency bool
}

// Engine batches PDF extraction over multiple files and decorates the spans
// with synthetic chunk metadata.
type Engine struct {
	spans extractor.SpanSource
	opts  Options
	// randScore is swappable in tests for deterministic ranking.
	randScore func() float64
}

func NewEngine(spans extractor.SpanSource, opts Options) *Engine {
	return &Engine{
		spans: spans,
		opts:  opts,
		randScore: func() float64 {
			return 0.5 + rand.Float64()*0.5
		},
	}
}

// ParseDocuments extracts every file and groups its spans by page. Files that
// do not exist, or whose name lacks a .pdf suffix, are skipped silently and
// produce no entry. ChunkTypes in opts are accepted but not filtered on; the
// mock does not distinguish categories.
func (e *Engine) ParseDocuments(ctx context.Context, paths []string, opts core.ParseOptions) (*models.ParseResult, error) {
	result := make(map[string]models.PageChunks)

	for i, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
			continue
		}

		if e.opts.SimulateLatency {
			if err := e.sleepForSize(ctx, info.Size()); err != nil {
				return nil, err
			}
		}

		spans, err := e.spans.ExtractSpans(path)
		if err != nil {
			return nil, err
		}

		title := filepath.Base(path)
		if i < len(opts.Titles) && opts.Titles[i] != "" {
			title = opts.Titles[i]
		}

		pages := make(models.PageChunks)
		for _, span := range spans {
			pages[span.Box.Page] = append(pages[span.Box.Page], models.Chunk{
				Text:           span.Text,
				BBox:           span.Box,
				ChunkID:        uuid.NewString(),
				RelevanceScore: e.randScore(),
				Filename:       title,
			})
		}
		if len(pages) > 0 {
			result[path] = pages
		}
	}

	log.Printf("mocksdk: processed %d documents", len(result))
	return &models.ParseResult{FilePages: result}, nil
}

// sleepForSize blocks for 0.5-3.0 seconds, linear in file size (divisor 10
// MB/s of simulated throughput), honoring cancellation.
func (e *Engine) sleepForSize(ctx context.Context, sizeBytes int64) error {
	sizeMB := float64(sizeBytes) / (1024 * 1024)
	seconds := sizeMB / 10
	if seconds < 0.5 {
		seconds = 0.5
	}
	if seconds > 3.0 {
		seconds = 3.0
	}

	select {
	case <-time.After(time.Duration(seconds * float64(time.Second))):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
