package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/NdodaEnde/doc-processor/internal/models"
)

// answerSchemaJSON constrains the model's reply: exactly the three top-level
// keys matter, best_chunks entries stay loose beyond file/page so a model
// adding a score (or similar) is not rejected.
const answerSchemaJSON = `{
  "type": "object",
  "required": ["answer", "reasoning", "best_chunks"],
  "properties": {
    "answer": {"type": "string"},
    "reasoning": {"type": "string"},
    "best_chunks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["file", "page"],
        "properties": {
          "file": {"type": "string"},
          "page": {"type": "number"},
          "bboxes": {"type": "array"},
          "captions": {"type": "array"},
          "reason": {"type": "string"}
        }
      }
    }
  }
}`

var answerSchema = jsonschema.MustCompileString("answer.json", answerSchemaJSON)

// StripCodeFences removes a wrapping fenced block from a model reply:
// a leading line starting with ``` and, if present, a trailing one.
// Unfenced input passes through untouched.
func StripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	if strings.HasPrefix(lines[0], "```") {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ParseAnswer repairs and decodes a model reply into an Answer: fences are
// stripped, the remainder must be JSON matching the answer schema. The
// stripped text is returned alongside so failure paths can echo a prefix of
// what the model actually said.
func ParseAnswer(raw string) (*models.Answer, string, error) {
	stripped := StripCodeFences(raw)

	var decoded any
	if err := json.Unmarshal([]byte(stripped), &decoded); err != nil {
		return nil, stripped, fmt.Errorf("answer is not valid JSON: %w", err)
	}
	if err := answerSchema.Validate(decoded); err != nil {
		return nil, stripped, fmt.Errorf("answer does not match expected shape: %w", err)
	}

	var answer models.Answer
	if err := json.Unmarshal([]byte(stripped), &answer); err != nil {
		return nil, stripped, fmt.Errorf("decode answer: %w", err)
	}
	if answer.BestChunks == nil {
		answer.BestChunks = []models.BestChunk{}
	}
	return &answer, stripped, nil
}
