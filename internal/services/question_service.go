package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/NdodaEnde/doc-processor/internal/core"
	"github.com/NdodaEnde/doc-processor/internal/core/evidence"
	"github.com/NdodaEnde/doc-processor/internal/core/llm"
	"github.com/NdodaEnde/doc-processor/internal/models"
)

// ErrBatchNotFound means the referenced batch id is unknown (or was cleaned
// up concurrently).
var ErrBatchNotFound = errors.New("batch ID not found")

// BadRequestError marks missing or malformed request fields.
type BadRequestError struct{ Msg string }

func (e *BadRequestError) Error() string { return e.Msg }

// BatchFailedError means the referenced batch exists but its processing
// failed; it echoes the stored reason.
type BatchFailedError struct{ Batch *models.Batch }

func (e *BatchFailedError) Error() string {
	return "document processing failed: " + e.Batch.ProcessingError
}

// ResponseFormatError means the model's reply could not be repaired into the
// answer shape. Degraded carries the well-formed fallback body that is still
// returned to the caller (alongside a non-2xx status).
type ResponseFormatError struct {
	Degraded *models.Answer
	cause    error
}

func (e *ResponseFormatError) Error() string { return e.cause.Error() }
func (e *ResponseFormatError) Unwrap() error { return e.cause }

// AskRequest accepts both addressing patterns: a stored batch id, or inline
// evidence in either accepted shape. "query" and "question" are synonyms.
type AskRequest struct {
	BatchID  string          `json:"batch_id"`
	Question string          `json:"question"`
	Query    string          `json:"query"`
	Evidence json.RawMessage `json:"evidence"`
}

const systemInstruction = "You are a helpful expert that analyses context deeply " +
	"and reasons through it without assuming anything."

const promptTemplate = `
Use the following JSON evidence extracted from the uploaded PDF files, answer the following question based on that evidence.
Please return your response in JSON format with three keys:
1. "answer": Your detailed answer to the question
2. "reasoning": Your step-by-step reasoning process
3. "best_chunks": A list of objects with:
   - "file"
   - "page"
   - "bboxes" (each bbox is [x, y, w, h])
   - "captions" (list of text snippets)
   - "reason"

Question: %s

Evidence: %s
`

// QuestionService answers grounded questions over evidence. With a language
// model wired it delegates and repairs the reply; without one it falls back
// to the score-ranking heuristic and says so in the answer.
type QuestionService struct {
	store core.BatchStore
	llm   core.LLMProvider
	// synthScore fills in missing relevance scores on the ranking path;
	// swappable in tests.
	synthScore func() float64
}

func NewQuestionService(store core.BatchStore, provider core.LLMProvider) *QuestionService {
	return &QuestionService{
		store: store,
		llm:   provider,
		synthScore: func() float64 {
			return 0.5 + rand.Float64()*0.5
		},
	}
}

// Ask resolves the evidence reference and produces an answer. Error values
// carry the HTTP classification: BadRequestError, ErrBatchNotFound,
// BatchFailedError, ResponseFormatError.
func (s *QuestionService) Ask(ctx context.Context, req *AskRequest) (*models.Answer, error) {
	question := req.Question
	if question == "" {
		question = req.Query
	}

	evidenceJSON, err := s.resolveEvidence(req, question)
	if err != nil {
		return nil, err
	}

	if s.llm == nil {
		return s.rankAnswer(evidenceJSON, question)
	}
	return s.modelAnswer(ctx, evidenceJSON, question)
}

// resolveEvidence picks stored or inline evidence, validating the request's
// field combinations.
func (s *QuestionService) resolveEvidence(req *AskRequest, question string) (json.RawMessage, error) {
	switch {
	case req.BatchID != "" && question != "":
		batch, ok := s.store.Get(req.BatchID)
		if !ok {
			return nil, ErrBatchNotFound
		}
		if !batch.ProcessingSuccess {
			return nil, &BatchFailedError{Batch: batch}
		}
		raw, err := json.Marshal(batch.Evidence)
		if err != nil {
			return nil, fmt.Errorf("encode stored evidence: %w", err)
		}
		return raw, nil

	case len(req.Evidence) > 0 && question != "":
		return req.Evidence, nil

	default:
		return nil, &BadRequestError{Msg: "Missing required fields"}
	}
}

// rankAnswer is the heuristic path: flatten every chunk from either evidence
// shape, sort by relevance score, keep the top 3. The answer identifies
// itself as simulated.
func (s *QuestionService) rankAnswer(evidenceJSON json.RawMessage, question string) (*models.Answer, error) {
	var input map[string]any
	if err := json.Unmarshal(evidenceJSON, &input); err != nil {
		return nil, &BadRequestError{Msg: "evidence must be a JSON object"}
	}

	all := evidence.FlattenForRanking(input, question, s.synthScore)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })
	if len(all) > 3 {
		all = all[:3]
	}
	if all == nil {
		all = []models.BestChunk{}
	}

	return &models.Answer{
		Answer: fmt.Sprintf("This is a simulated answer to the question: %s", question),
		Reasoning: "This mock implementation provides simulated answers. In a real " +
			"implementation, this would contain step-by-step reasoning based on the evidence.",
		BestChunks: all,
	}, nil
}

// modelAnswer is the live path: one fixed prompt embedding the evidence JSON
// and the question, then repair of the model's reply.
func (s *QuestionService) modelAnswer(ctx context.Context, evidenceJSON json.RawMessage, question string) (*models.Answer, error) {
	prompt := fmt.Sprintf(promptTemplate, question, string(evidenceJSON))

	raw, err := s.llm.Generate(ctx, systemInstruction, prompt)
	if err != nil {
		return nil, err
	}

	answer, stripped, perr := llm.ParseAnswer(raw)
	if perr != nil {
		return nil, &ResponseFormatError{
			Degraded: &models.Answer{
				Answer:     "Error parsing AI response as JSON. Raw response: " + prefix(stripped, 100) + "...",
				Reasoning:  "JSON parsing error",
				BestChunks: []models.BestChunk{},
			},
			cause: perr,
		}
	}
	return answer, nil
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
