package core

import (
	"context"

	"github.com/NdodaEnde/doc-processor/internal/models"
)

// ParseOptions carries the per-call knobs the document parser accepts. The
// mock engine honours Titles and accepts ChunkTypes without filtering; the
// real adapter forwards both upstream.
type ParseOptions struct {
	// Titles are display filenames positionally aligned with the input paths.
	Titles []string
	// ChunkTypes restricts which chunk categories the parser should return.
	ChunkTypes []string
}

// DocumentParser turns a list of PDF paths into raw parse output. It is the
// boundary behind which the real document-understanding SDK and the local
// mock are interchangeable.
type DocumentParser interface {
	ParseDocuments(ctx context.Context, paths []string, opts ParseOptions) (*models.ParseResult, error)
}

// LLMProvider is the chat-completion boundary. Implementations return the
// model's raw text; callers own any JSON repair of that text.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// BatchStore keeps processed batches addressable by id. Implementations must
// be safe for concurrent use; a Get racing a Delete resolves to not-found.
type BatchStore interface {
	Put(batch *models.Batch)
	Get(id string) (*models.Batch, bool)
	// Delete removes the batch and reports whether it existed.
	Delete(id string) (*models.Batch, bool)
}
