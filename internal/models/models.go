package models

import (
	"time"
)

// Box is a rectangular region on a page, with every edge expressed as a
// fraction of the page dimension. Page is 0-based; canonical evidence keys
// surface it 1-based.
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Page   int     `json:"page"`
}

// Chunk is one extracted unit of document text plus its location.
// Chunks are immutable once created.
type Chunk struct {
	Text           string  `json:"text"`
	BBox           Box     `json:"bbox"`
	ChunkID        string  `json:"chunk_id"`
	RelevanceScore float64 `json:"relevance_score"`
	Filename       string  `json:"filename,omitempty"`
}

// PageChunks maps a 0-based page number to the chunks found on it.
type PageChunks map[int][]Chunk

// EdgeBox is the real SDK's grounding box shape.
type EdgeBox struct {
	L float64 `json:"l"`
	T float64 `json:"t"`
	R float64 `json:"r"`
	B float64 `json:"b"`
}

// Grounding ties a chunk to one page region. Page is 0-based.
type Grounding struct {
	Page int     `json:"page"`
	Box  EdgeBox `json:"box"`
}

// ChunkTypeError marks chunks the SDK could not process; the normalizer
// skips them.
const ChunkTypeError = "error"

// SDKChunk is one chunk as returned by the real document-understanding SDK.
// A chunk may ground to multiple page regions.
type SDKChunk struct {
	Text      string      `json:"text"`
	ChunkType string      `json:"chunk_type"`
	ChunkID   string      `json:"chunk_id"`
	Grounding []Grounding `json:"grounding"`
}

// ParsedDocument is the real SDK's per-document result.
type ParsedDocument struct {
	FilePath string     `json:"file_path"`
	Chunks   []SDKChunk `json:"chunks"`
}

// ParseResult is the raw parser output, a tagged union of the two shapes the
// pipeline produces. Exactly one of the fields is set: Documents by the real
// SDK adapter, FilePages by the mock engine.
type ParseResult struct {
	Documents []ParsedDocument
	FilePages map[string]PageChunks
}

// EvidenceRecord is one entry of the canonical evidence shape. BBoxes are
// [x, y, w, h]; BBoxes and Captions have matching cardinality.
type EvidenceRecord struct {
	BBoxes   [][]float64 `json:"bboxes"`
	Captions []string    `json:"captions"`
}

// Evidence is the flattened, persisted evidence shape keyed "<filename>:<page>"
// with 1-based pages.
type Evidence map[string][]EvidenceRecord

// Batch is one unit of uploaded documents processed together. A batch exists
// after processing whether it succeeded or failed, so the status and data
// endpoints always have something to report.
type Batch struct {
	ID                string    `json:"batch_id"`
	Evidence          Evidence  `json:"evidence"`
	Files             []string  `json:"files"`
	Filenames         []string  `json:"filenames"`
	ProcessedAt       time.Time `json:"processed_at"`
	ProcessingSuccess bool      `json:"processing_success"`
	ProcessingError   string    `json:"processing_error,omitempty"`
	SDKAuthError      bool      `json:"sdk_auth_error"`
	IsMockData        bool      `json:"is_mock_data"`
}

// BestChunk is one ranked piece of supporting evidence in an answer.
type BestChunk struct {
	File     string      `json:"file"`
	Page     int         `json:"page"`
	BBoxes   [][]float64 `json:"bboxes"`
	Captions []string    `json:"captions"`
	Reason   string      `json:"reason"`
	Score    float64     `json:"score,omitempty"`
}

// Answer is the question-answering result, produced either synthetically or
// by parsing the language model's JSON output.
type Answer struct {
	Answer     string      `json:"answer"`
	Reasoning  string      `json:"reasoning"`
	BestChunks []BestChunk `json:"best_chunks"`
}
