package usecase

import (
	"context"
	"fmt"

	"github.com/finqa/investor-qa/internal/core/domain"
	"github.com/finqa/investor-qa/internal/core/ports"
)

// Retriever turns a question into the top-k most similar chunks, excluding
// every confidential document. An empty corpus yields an empty result, not
// an error; an embedding failure propagates untouched and is never retried
// here.
type Retriever struct {
	embedder ports.Embedder
	vectorDB ports.VectorStore
	repo     ports.DocumentRepository
}

func NewRetriever(embedder ports.Embedder, vectorDB ports.VectorStore, repo ports.DocumentRepository) *Retriever {
	return &Retriever{
		embedder: embedder,
		vectorDB: vectorDB,
		repo:     repo,
	}
}

func (r *Retriever) Retrieve(ctx context.Context, question string, settings domain.QuerySettings) ([]domain.RetrievedChunk, error) {
	queryVector, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	excluded, err := r.repo.ConfidentialIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load confidential document ids: %w", err)
	}

	chunks, err := r.vectorDB.SimilaritySearch(ctx, queryVector, settings.MaxChunks, excluded)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return chunks, nil
}
