// Package agentic is the HTTP adapter for the hosted document-understanding
// API. It owns transport, retries, and failure classification so the rest of
// the pipeline only sees parsed documents or a classified error.
package agentic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NdodaEnde/doc-processor/internal/core"
	"github.com/NdodaEnde/doc-processor/internal/models"
)

var _ core.DocumentParser = (*Client)(nil)

// Config for the document-analysis client.
type Config struct {
	APIKey            string
	BaseURL           string // default https://api.va.landing.ai/v1/tools
	BatchSize         int    // files submitted per upstream call window
	MaxWorkers        int    // concurrent uploads
	MaxRetries        int
	RetryLoggingStyle string // "inline_block" keeps retry logs terse
	Timeout           time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.va.landing.ai/v1/tools"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 5
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// analysisResponse is the upstream result envelope.
type analysisResponse struct {
	Data struct {
		Chunks []models.SDKChunk `json:"chunks"`
	} `json:"data"`
}

// ParseDocuments submits each file to the analysis endpoint, at most
// MaxWorkers in flight. Results keep the input order. Any classified failure
// aborts the batch; callers fold it into the batch record.
func (c *Client) ParseDocuments(ctx context.Context, paths []string, opts core.ParseOptions) (*models.ParseResult, error) {
	docs := make([]models.ParsedDocument, len(paths))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxWorkers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			doc, err := c.parseOne(gctx, path, opts)
			if err != nil {
				return err
			}
			mu.Lock()
			docs[i] = *doc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Drop slots the upstream returned nothing for; order stays positional.
	out := docs[:0]
	for _, d := range docs {
		if d.FilePath != "" {
			out = append(out, d)
		}
	}
	return &models.ParseResult{Documents: out}, nil
}

func (c *Client) parseOne(ctx context.Context, path string, opts core.ParseOptions) (*models.ParsedDocument, error) {
	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		doc, err := c.submit(ctx, path, opts)
		if err == nil {
			c.logger.Info("agentic.parse.ok",
				"file", filepath.Base(path),
				"chunks", len(doc.Chunks),
				"attempt", attempt,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return doc, nil
		}
		lastErr = err

		// Unauthorized never heals on retry.
		if ae, ok := err.(*Error); ok && ae.Kind == KindUnauthorized {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if c.cfg.RetryLoggingStyle != "inline_block" || attempt == 1 {
			c.logger.Warn("agentic.parse.retry",
				"file", filepath.Base(path), "attempt", attempt, "error", err)
		}
		select {
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// submit performs one multipart upload and decodes the chunk/grounding
// payload. Non-2xx responses come back as classified errors.
func (c *Client) submit(ctx context.Context, path string, opts core.ParseOptions) (*models.ParsedDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("pdf", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("multipart: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	for _, ct := range opts.ChunkTypes {
		_ = mw.WriteField("chunk_types", ct)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/agentic-document-analysis", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Basic "+c.cfg.APIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, newError(ClassifyMessage(err.Error()), err.Error())
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		kind := ClassifyStatus(resp.StatusCode)
		msg := fmt.Sprintf("document analysis returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
		return nil, newError(kind, msg)
	}

	var decoded analysisResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode analysis response for %s: %w", path, err)
	}
	return &models.ParsedDocument{FilePath: path, Chunks: decoded.Data.Chunks}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
