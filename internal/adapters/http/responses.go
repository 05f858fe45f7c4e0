package httpadapter

import (
	"time"

	"github.com/finqa/investor-qa/internal/core/domain"
)

type documentResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	Confidential bool   `json:"confidential"`
	SizeBytes    int64  `json:"size_bytes"`
	ChunkCount   int    `json:"chunk_count"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	UploadedAt   string `json:"uploaded_at"`
}

func toDocumentResponse(doc *domain.Document) documentResponse {
	return documentResponse{
		ID:           doc.ID,
		Filename:     doc.Filename,
		Confidential: doc.Confidential,
		SizeBytes:    doc.SizeBytes,
		ChunkCount:   doc.ChunkCount,
		ChunkSize:    doc.ChunkSize,
		ChunkOverlap: doc.ChunkOverlap,
		Status:       string(doc.Status),
		Error:        doc.Error,
		UploadedAt:   doc.UploadedAt.UTC().Format(time.RFC3339),
	}
}

// queryRequest carries the client's per-request settings. The settings object
// uses camelCase keys; the client is the source of truth for its session, so
// nothing here is persisted server-side.
type queryRequest struct {
	Question string `json:"question"`
	Settings struct {
		ChunkSize    int    `json:"chunkSize"`
		ChunkOverlap int    `json:"chunkOverlap"`
		MaxChunks    int    `json:"maxChunks"`
		Provider     string `json:"provider"`
	} `json:"settings"`
}

type sourceResponse struct {
	Filename       string  `json:"filename"`
	RelevanceScore float64 `json:"relevance_score"`
	Preview        string  `json:"preview"`
}

type answerResponse struct {
	Question           string           `json:"question"`
	Answer             string           `json:"answer"`
	Confidence         int              `json:"confidence"`
	Reasoning          string           `json:"reasoning,omitempty"`
	Sources            []sourceResponse `json:"sources"`
	ChunksFound        int              `json:"chunks_found"`
	ProviderUsed       string           `json:"provider_used"`
	ConfidenceUnparsed bool             `json:"confidence_unparsed,omitempty"`
}

func toAnswerResponse(answer *domain.Answer) answerResponse {
	sources := make([]sourceResponse, 0, len(answer.Sources))
	for _, s := range answer.Sources {
		sources = append(sources, sourceResponse{
			Filename:       s.Filename,
			RelevanceScore: s.RelevanceScore,
			Preview:        s.Preview,
		})
	}
	return answerResponse{
		Question:           answer.Question,
		Answer:             answer.Text,
		Confidence:         answer.Confidence,
		Reasoning:          answer.Reasoning,
		Sources:            sources,
		ChunksFound:        answer.ChunksFound,
		ProviderUsed:       answer.ProviderUsed,
		ConfidenceUnparsed: answer.ConfidenceUnparsed,
	}
}
