package searchproxy

import "encoding/json"

// Chunk is one retrieved document fragment.
type Chunk struct {
	Content      string  `json:"content"`
	Score        float64 `json:"score"`
	Title        string  `json:"title"`
	SectionTitle string  `json:"section_title"`
	DocName      string  `json:"doc_name"`
	ChunkType    string  `json:"chunk_type"`
	ChunkSubtype string  `json:"chunk_subtype"`
	PageIndices  []int   `json:"page_indices"`
}

// AskResult holds the outcome of an Ask call.
type AskResult struct {
	Chunks []Chunk `json:"chunks"`
	Answer string  `json:"answer,omitempty"`
}

// AskOptions tunes a single Ask call. Zero values fall through to the
// server-side configuration cascade.
type AskOptions struct {
	GenerateAnswer bool
	TopK           int
	Config         map[string]any
}

// RawSearchRequest is a passthrough query. Zero-value Method and Path take
// the server defaults (POST /{index}/_search).
type RawSearchRequest struct {
	Method string
	Index  string
	Path   string
	Body   json.RawMessage
	Config map[string]any
}
