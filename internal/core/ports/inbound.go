package ports

import (
	"context"
	"io"

	"github.com/finqa/investor-qa/internal/core/domain"
)

// UploadRequest carries everything the ingestion transport delivers for
// one file: the raw bytes, the confidentiality flag and the chunking
// parameters chosen by the client.
type UploadRequest struct {
	Filename     string
	Confidential bool
	ChunkSize    int
	ChunkOverlap int
	Body         io.Reader
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, req UploadRequest) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document
// processing (extract, chunk, embed, index).
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// QuestionAnswerer is the inbound contract for the query path.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string, settings domain.QuerySettings) (*domain.Answer, error)
}

// DocumentReader is the inbound read model for document metadata. The HTTP
// adapter reads through it so list/get handlers cannot touch the write side.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
}

// CorpusResetter purges every document, chunk and embedding.
type CorpusResetter interface {
	Reset(ctx context.Context) error
}
