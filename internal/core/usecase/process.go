package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/finqa/investor-qa/internal/core/domain"
	"github.com/finqa/investor-qa/internal/core/ports"
)

// ProcessDocumentUseCase runs the write path for one uploaded document:
// extract text, chunk it, and, unless the document is confidential, embed
// and index the chunk set as one atomic unit. Confidential documents keep
// their chunk count as metadata but never produce embeddings.
type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	vectorDB  ports.VectorStore
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		vectorDB:  vectorDB,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.processPipeline(ctx, documentID); err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}

	texts, err := uc.chunker.Split(text, doc.ChunkSize, doc.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("chunk document: %w", err)
	}
	if len(texts) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}

	if err := uc.repo.SetChunkCount(ctx, doc.ID, len(texts)); err != nil {
		return fmt.Errorf("record chunk count: %w", err)
	}

	if doc.Confidential {
		// Metadata only: no embeddings, no chunk rows, nothing retrievable.
		return nil
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(texts)),
		)
	}

	chunks := make([]domain.Chunk, 0, len(texts))
	for i := range texts {
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Ordinal:    i,
			Text:       texts[i],
			Embedding:  vectors[i],
		})
	}

	if err := uc.vectorDB.UpsertChunks(ctx, doc, chunks); err != nil {
		return fmt.Errorf("index chunks in vector store: %w", err)
	}
	return nil
}
