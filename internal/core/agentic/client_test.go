package agentic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NdodaEnde/doc-processor/internal/core"
	"github.com/NdodaEnde/doc-processor/internal/models"
)

func writeTempPDF(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 body"), 0o644))
	return path
}

func analysisBody(chunks ...models.SDKChunk) []byte {
	var envelope analysisResponse
	envelope.Data.Chunks = chunks
	raw, _ := json.Marshal(envelope)
	return raw
}

func TestParseDocuments_Success(t *testing.T) {
	var gotAuth atomic.Value
	var gotChunkTypes atomic.Value

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotAuth.Store(r.Header.Get("Authorization"))
		gotChunkTypes.Store(r.MultipartForm.Value["chunk_types"])

		w.Write(analysisBody(models.SDKChunk{
			Text:      "hello",
			ChunkType: "text",
			Grounding: []models.Grounding{{Page: 0, Box: models.EdgeBox{L: 0.1, T: 0.1, R: 0.5, B: 0.2}}},
		}))
	}))
	defer upstream.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: upstream.URL, MaxRetries: 1}, nil)
	path := writeTempPDF(t, "a.pdf")

	result, err := client.ParseDocuments(context.Background(), []string{path}, core.ParseOptions{
		ChunkTypes: []string{"text", "table"},
	})
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, path, result.Documents[0].FilePath)
	require.Len(t, result.Documents[0].Chunks, 1)
	assert.Equal(t, "hello", result.Documents[0].Chunks[0].Text)

	assert.Equal(t, "Basic secret", gotAuth.Load())
	assert.Equal(t, []string{"text", "table"}, gotChunkTypes.Load())
}

func TestParseDocuments_KeepsInputOrder(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		name := r.MultipartForm.File["pdf"][0].Filename
		w.Write(analysisBody(models.SDKChunk{Text: name, ChunkType: "text"}))
	}))
	defer upstream.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: upstream.URL, MaxWorkers: 3, MaxRetries: 1}, nil)
	paths := []string{
		writeTempPDF(t, "first.pdf"),
		writeTempPDF(t, "second.pdf"),
		writeTempPDF(t, "third.pdf"),
	}

	result, err := client.ParseDocuments(context.Background(), paths, core.ParseOptions{})
	require.NoError(t, err)
	require.Len(t, result.Documents, 3)
	for i, doc := range result.Documents {
		assert.Equal(t, paths[i], doc.FilePath)
		assert.Equal(t, filepath.Base(paths[i]), doc.Chunks[0].Text)
	}
}

func TestParseDocuments_UnauthorizedNoRetry(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer upstream.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: upstream.URL, MaxRetries: 5}, nil)
	path := writeTempPDF(t, "a.pdf")

	_, err := client.ParseDocuments(context.Background(), []string{path}, core.ParseOptions{})
	require.Error(t, err)

	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, KindUnauthorized, ae.Kind)
	assert.True(t, ae.AuthSuspect())
	assert.Equal(t, int32(1), calls.Load(), "401 must not be retried")
}

func TestParseDocuments_ServerErrorRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer upstream.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: upstream.URL, MaxRetries: 2}, nil)
	path := writeTempPDF(t, "a.pdf")

	start := time.Now()
	_, err := client.ParseDocuments(context.Background(), []string{path}, core.ParseOptions{})
	require.Error(t, err)

	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, KindServer, ae.Kind)
	assert.Equal(t, int32(2), calls.Load())
	// One backoff pause between the two attempts.
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
}

func TestParseDocuments_RecoversAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "try again", http.StatusBadGateway)
			return
		}
		w.Write(analysisBody(models.SDKChunk{Text: "ok", ChunkType: "text"}))
	}))
	defer upstream.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: upstream.URL, MaxRetries: 3}, nil)
	path := writeTempPDF(t, "a.pdf")

	result, err := client.ParseDocuments(context.Background(), []string{path}, core.ParseOptions{})
	require.NoError(t, err)
	require.Len(t, result.Documents, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Config{APIKey: "k"}, nil)
	assert.Equal(t, "https://api.va.landing.ai/v1/tools", client.cfg.BaseURL)
	assert.Equal(t, 20, client.cfg.BatchSize)
	assert.Equal(t, 5, client.cfg.MaxWorkers)
	assert.Equal(t, 3, client.cfg.MaxRetries)
}
