package ports

import (
	"context"
	"io"

	"github.com/finqa/investor-qa/internal/core/domain"
)

// DocumentRepository persists and reads document metadata.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	ConfidentialIDs(ctx context.Context) ([]string, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetChunkCount(ctx context.Context, id string, count int) error
	DeleteAll(ctx context.Context) ([]string, error)
}

// ObjectStorage stores original uploaded files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes document-uploaded events.
type MessageQueue interface {
	PublishDocumentUploaded(ctx context.Context, documentID string) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Chunker splits extracted text into overlapping fixed-size segments.
type Chunker interface {
	Split(text string, size, overlap int) ([]string, error)
}

// Embedder builds vectors for chunk texts and query text. Implementations
// share one underlying model for the process lifetime and must be safe for
// concurrent use.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore persists chunk text, metadata and vectors, and answers
// nearest-neighbour queries with cosine similarity. UpsertChunks replaces a
// document's chunk set atomically; partial writes are never visible.
type VectorStore interface {
	UpsertChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error
	SimilaritySearch(ctx context.Context, queryVector []float32, k int, excludeDocumentIDs []string) ([]domain.RetrievedChunk, error)
	DeleteAll(ctx context.Context) error
}

// GenerationOptions bound a single provider call.
type GenerationOptions struct {
	MaxTokens   int
	Temperature float64
}

// Provider is the uniform capability hiding one LLM vendor's answer API.
// GenerateAnswer returns the vendor's raw text reply; parsing happens in the
// coordinator, never at the adapter boundary.
type Provider interface {
	Name() string
	GenerateAnswer(ctx context.Context, question string, chunks []domain.RetrievedChunk, opts GenerationOptions) (string, error)
}

// ProviderRegistry is the strategy table over configured providers. Candidates
// returns the attempt order for one request: the requested provider first,
// then the fixed fallback order, skipping providers latched out by previous
// authentication failures.
type ProviderRegistry interface {
	Candidates(requested string) []Provider
	MarkAuthFailed(name string)
}
