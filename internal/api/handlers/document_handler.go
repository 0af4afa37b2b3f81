package handlers

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/NdodaEnde/doc-processor/internal/core"
	"github.com/NdodaEnde/doc-processor/internal/models"
	"github.com/NdodaEnde/doc-processor/internal/services"
)

type DocumentHandler struct {
	process        *services.ProcessService
	store          core.BatchStore
	uploadDir      string
	maxUploadBytes int64
	apiKeyPresent  bool
}

func NewDocumentHandler(process *services.ProcessService, store core.BatchStore, uploadDir string, maxUploadBytes int64, apiKeyPresent bool) *DocumentHandler {
	return &DocumentHandler{
		process:        process,
		store:          store,
		uploadDir:      uploadDir,
		maxUploadBytes: maxUploadBytes,
		apiKeyPresent:  apiKeyPresent,
	}
}

func (h *DocumentHandler) Health(w http.ResponseWriter, r *http.Request) {
	sdk := "real"
	if h.process.MockMode() {
		sdk = "mock"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "healthy",
		"service":           "document-processor",
		"sdk":               sdk,
		"api_key_available": h.apiKeyPresent,
		"sdk_auth_error":    h.process.AuthErrorSeen(),
	})
}

// processResponse mirrors the historical /process-documents contract:
// failures surface through status/error with HTTP 200, not through an HTTP
// error, except for truly unexpected internal faults.
type processResponse struct {
	BatchID               string          `json:"batch_id"`
	DocumentCount         int             `json:"document_count"`
	ProcessingTimeSeconds float64         `json:"processing_time_seconds"`
	Evidence              models.Evidence `json:"evidence"`
	Status                string          `json:"status"`
	Error                 *string         `json:"error"`
	SDKAuthError          bool            `json:"sdk_auth_error"`
}

func (h *DocumentHandler) ProcessDocuments(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "No files part in the request")
		return
	}
	uploads := r.MultipartForm.File["files"]
	if len(uploads) == 0 {
		writeError(w, http.StatusBadRequest, "No files part in the request")
		return
	}
	if uploads[0].Filename == "" {
		writeError(w, http.StatusBadRequest, "No files selected")
		return
	}

	saved, err := h.saveUploads(uploads)
	if err != nil {
		log.Printf("process-documents: saving uploads: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":          err.Error(),
			"sdk_auth_error": h.process.AuthErrorSeen(),
		})
		return
	}

	batch, elapsed := h.process.Process(r.Context(), saved)

	status := "success"
	ev := batch.Evidence
	if !batch.ProcessingSuccess {
		status = "failed"
		ev = models.Evidence{}
	}
	var errText *string
	if batch.ProcessingError != "" {
		errText = &batch.ProcessingError
	}

	writeJSON(w, http.StatusOK, processResponse{
		BatchID:               batch.ID,
		DocumentCount:         len(saved),
		ProcessingTimeSeconds: elapsed.Seconds(),
		Evidence:              ev,
		Status:                status,
		Error:                 errText,
		SDKAuthError:          batch.SDKAuthError,
	})
}

// saveUploads persists each multipart file under a fresh uuid-prefixed name
// in the upload dir. The temp files live as long as their batch.
func (h *DocumentHandler) saveUploads(uploads []*multipart.FileHeader) ([]services.SavedFile, error) {
	saved := make([]services.SavedFile, 0, len(uploads))
	for _, header := range uploads {
		src, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %s: %w", header.Filename, err)
		}

		name := fmt.Sprintf("%s_%s", uuid.NewString(), filepath.Base(header.Filename))
		dstPath := filepath.Join(h.uploadDir, name)
		dst, err := os.Create(dstPath)
		if err != nil {
			src.Close()
			return nil, fmt.Errorf("create temp file: %w", err)
		}
		_, err = io.Copy(dst, src)
		src.Close()
		if cerr := dst.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, fmt.Errorf("write temp file for %s: %w", header.Filename, err)
		}

		saved = append(saved, services.SavedFile{
			Path:         dstPath,
			OriginalName: filepath.Base(header.Filename),
		})
	}
	return saved, nil
}

func (h *DocumentHandler) GetDocumentStatus(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.store.Get(chi.URLParam(r, "batchID"))
	if !ok {
		writeError(w, http.StatusNotFound, "Batch ID not found")
		return
	}

	status := "completed"
	if !batch.ProcessingSuccess {
		status = "failed"
	}
	var errText *string
	if batch.ProcessingError != "" {
		errText = &batch.ProcessingError
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"batch_id":       batch.ID,
		"status":         status,
		"error":          errText,
		"processed_at":   batch.ProcessedAt.Format(time.RFC3339),
		"document_count": len(batch.Filenames),
		"sdk_auth_error": batch.SDKAuthError,
		"is_mock_data":   batch.IsMockData,
	})
}

func (h *DocumentHandler) GetDocumentData(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.store.Get(chi.URLParam(r, "batchID"))
	if !ok {
		writeError(w, http.StatusNotFound, "Batch ID not found")
		return
	}

	if !batch.ProcessingSuccess {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":          "Document processing failed",
			"error_details":  batch.ProcessingError,
			"sdk_auth_error": batch.SDKAuthError,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"batch_id":       batch.ID,
		"evidence":       batch.Evidence,
		"processed_at":   batch.ProcessedAt.Format(time.RFC3339),
		"document_count": len(batch.Filenames),
		"filenames":      batch.Filenames,
		"is_mock_data":   batch.IsMockData,
		"sdk_auth_error": batch.SDKAuthError,
	})
}

func (h *DocumentHandler) CleanupBatch(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.store.Delete(chi.URLParam(r, "batchID"))
	if !ok {
		writeError(w, http.StatusNotFound, "Batch ID not found")
		return
	}

	// Best effort: a file that cannot be removed is logged, not fatal.
	for _, path := range batch.Files {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("cleanup: removing file %s: %v", path, err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Batch cleaned up successfully",
	})
}
