package domain

// Chunk is the unit of embedding and retrieval: a bounded contiguous text
// segment cut from one document. Chunks are written once during processing
// and only ever deleted together with their owning document.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Ordinal    int       `json:"ordinal"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// RetrievedChunk is one similarity-search hit, enriched with the owning
// document's filename for prompt building and source attribution.
type RetrievedChunk struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Ordinal    int     `json:"ordinal"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// QuerySettings is untrusted per-request input; the client owns its session
// settings and the server validates bounds on every request.
type QuerySettings struct {
	ChunkSize    int    `json:"chunkSize"`
	ChunkOverlap int    `json:"chunkOverlap"`
	MaxChunks    int    `json:"maxChunks"`
	Provider     string `json:"provider"`
}

// Validate rejects out-of-bounds settings before any processing happens.
func (s QuerySettings) Validate() error {
	if s.ChunkSize <= 0 {
		return WrapError(ErrInvalidConfiguration, "validate settings", errInvalid("chunkSize must be > 0"))
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return WrapError(ErrInvalidConfiguration, "validate settings", errInvalid("chunkOverlap must satisfy 0 <= overlap < chunkSize"))
	}
	if s.MaxChunks < 1 {
		return WrapError(ErrInvalidConfiguration, "validate settings", errInvalid("maxChunks must be >= 1"))
	}
	return nil
}

// Source is one attribution entry in an answer. RelevanceScore is the
// cosine similarity expressed as a percentage.
type Source struct {
	Filename       string  `json:"filename"`
	RelevanceScore float64 `json:"relevance_score"`
	Preview        string  `json:"preview"`
}

// Answer is the full structured response for one question. It is built per
// request and never persisted.
type Answer struct {
	Question           string   `json:"question"`
	Text               string   `json:"answer"`
	Confidence         int      `json:"confidence"`
	Reasoning          string   `json:"reasoning"`
	Sources            []Source `json:"sources"`
	ChunksFound        int      `json:"chunks_found"`
	ProviderUsed       string   `json:"provider_used"`
	ConfidenceUnparsed bool     `json:"confidence_unparsed,omitempty"`
}
