package domain

// RetrievedChunk is one unit of retrieved content plus its relevance score and
// metadata. Chunks are request-scoped value objects: constructed once per
// backend hit, never persisted.
type RetrievedChunk struct {
	Content      string  `json:"content"`
	Score        float64 `json:"score"`
	Title        string  `json:"title"`
	SectionTitle string  `json:"section_title"`
	DocName      string  `json:"doc_name"`
	ChunkType    string  `json:"chunk_type"`
	ChunkSubtype string  `json:"chunk_subtype"`
	PageIndices  []int   `json:"page_indices"`
}

// BackendResponse is the outcome of a single search backend call: the HTTP
// status and the parsed JSON body. Non-2xx responses are carried through so
// the caller can decide whether the body is meaningful.
type BackendResponse struct {
	Status int
	Body   []byte
}

// OK reports whether the status is in the 2xx range.
func (r *BackendResponse) OK() bool {
	return r.Status >= 200 && r.Status < 300
}
