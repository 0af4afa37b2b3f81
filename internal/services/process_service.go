package services

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/NdodaEnde/doc-processor/internal/core"
	"github.com/NdodaEnde/doc-processor/internal/core/agentic"
	"github.com/NdodaEnde/doc-processor/internal/core/evidence"
	"github.com/NdodaEnde/doc-processor/internal/models"
)

// SavedFile is one upload already persisted to the temp dir.
type SavedFile struct {
	Path         string
	OriginalName string
}

// ProcessService runs the parse–normalize–store pipeline. Failures are
// recorded in the batch, never thrown: a batch always exists after Process
// returns so the status and data endpoints have something to report.
type ProcessService struct {
	parser       core.DocumentParser
	store        core.BatchStore
	mockMode     bool
	demoFallback bool
	chunkTypes   []string
	timeout      time.Duration

	// authErrorSeen is the process-wide sticky flag surfaced by /health.
	authErrorSeen atomic.Bool
}

func NewProcessService(parser core.DocumentParser, store core.BatchStore, mockMode, demoFallback bool, timeout time.Duration) *ProcessService {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &ProcessService{
		parser:       parser,
		store:        store,
		mockMode:     mockMode,
		demoFallback: demoFallback,
		timeout:      timeout,
	}
}

// AuthErrorSeen reports whether any processing so far hit an auth-suspect
// upstream failure.
func (s *ProcessService) AuthErrorSeen() bool { return s.authErrorSeen.Load() }

// MockMode reports which parser backs the pipeline.
func (s *ProcessService) MockMode() bool { return s.mockMode }

// Process parses the saved files, flattens the output into canonical
// evidence, and stores the outcome under a fresh batch id. The returned
// duration is wall-clock processing time.
func (s *ProcessService) Process(ctx context.Context, files []SavedFile) (*models.Batch, time.Duration) {
	start := time.Now()

	paths := make([]string, len(files))
	filenames := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
		filenames[i] = f.OriginalName
	}

	batch := &models.Batch{
		ID:                uuid.NewString(),
		Evidence:          models.Evidence{},
		Files:             paths,
		Filenames:         filenames,
		ProcessedAt:       time.Now(),
		ProcessingSuccess: true,
	}

	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.parser.ParseDocuments(pctx, paths, core.ParseOptions{
		Titles:     filenames,
		ChunkTypes: s.chunkTypes,
	})

	switch {
	case err != nil:
		s.recordFailure(batch, err)
	case result == nil || (len(result.Documents) == 0 && len(result.FilePages) == 0):
		batch.ProcessingSuccess = false
		batch.ProcessingError = "No results returned from document parser - API may have failed"
		batch.SDKAuthError = true
	default:
		all, nerr := evidence.Normalize(result, filenames)
		if nerr != nil {
			batch.ProcessingSuccess = false
			batch.ProcessingError = nerr.Error()
			// Both normalizer sentinels indicate the upstream likely
			// failed silently.
			batch.SDKAuthError = errors.Is(nerr, evidence.ErrNoValidChunks) || errors.Is(nerr, evidence.ErrEmptyEvidence)
		} else {
			batch.Evidence = all
		}
	}

	if batch.SDKAuthError {
		s.authErrorSeen.Store(true)
	}

	// Degraded demo mode: opt-in only, and always flagged so synthetic
	// evidence is never mistaken for extracted evidence.
	if s.mockMode && s.demoFallback && batch.SDKAuthError {
		log.Printf("process: auth-suspect failure in mock mode, substituting demo evidence for batch %s", batch.ID)
		batch.Evidence = evidence.BuildDemo(filenames)
		batch.ProcessingSuccess = true
		batch.ProcessingError = evidence.DemoModeError
		batch.IsMockData = true
	}

	elapsed := time.Since(start)
	log.Printf("process: batch %s done in %.2fs (success=%t, keys=%d)",
		batch.ID, elapsed.Seconds(), batch.ProcessingSuccess, len(batch.Evidence))

	s.store.Put(batch)
	return batch, elapsed
}

// recordFailure folds a parse error into the batch using the adapter's
// classification; timeouts and unknown failures keep their own text.
func (s *ProcessService) recordFailure(batch *models.Batch, err error) {
	batch.ProcessingSuccess = false

	var ae *agentic.Error
	if errors.As(err, &ae) {
		batch.ProcessingError = agentic.Describe(ae.Kind, ae.Error())
		batch.SDKAuthError = ae.AuthSuspect()
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		batch.ProcessingError = "document parsing timed out"
		return
	}

	kind := agentic.ClassifyMessage(err.Error())
	batch.ProcessingError = agentic.Describe(kind, err.Error())
	batch.SDKAuthError = kind != agentic.KindUnknown
}
