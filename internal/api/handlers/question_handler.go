package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/NdodaEnde/doc-processor/internal/services"
)

type QuestionHandler struct {
	questions *services.QuestionService
}

func NewQuestionHandler(questions *services.QuestionService) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

// AskQuestion answers a question over stored or inline evidence. Failure
// bodies stay structured JSON even on non-2xx statuses so callers always
// have something to render.
func (h *QuestionHandler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	var req services.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}

	answer, err := h.questions.Ask(r.Context(), &req)
	if err == nil {
		writeJSON(w, http.StatusOK, answer)
		return
	}

	var badReq *services.BadRequestError
	var failed *services.BatchFailedError
	var format *services.ResponseFormatError
	switch {
	case errors.As(err, &badReq):
		writeError(w, http.StatusBadRequest, badReq.Msg)
	case errors.Is(err, services.ErrBatchNotFound):
		writeError(w, http.StatusNotFound, "Batch ID not found")
	case errors.As(err, &failed):
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":          "Document processing failed",
			"error_details":  failed.Batch.ProcessingError,
			"sdk_auth_error": failed.Batch.SDKAuthError,
		})
	case errors.As(err, &format):
		// Dual signal: a well-formed degraded answer plus a 500 status.
		writeJSON(w, http.StatusInternalServerError, format.Degraded)
	default:
		log.Printf("ask-question: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
