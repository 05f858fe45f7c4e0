package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/finqa/investor-qa/internal/core/ports"
)

// ResetUseCase purges the whole corpus: chunk rows and vectors first, then
// document metadata, then the stored originals. File removal is best effort;
// a missing blob must not leave the databases half cleared.
type ResetUseCase struct {
	repo     ports.DocumentRepository
	vectorDB ports.VectorStore
	storage  ports.ObjectStorage
}

func NewResetUseCase(repo ports.DocumentRepository, vectorDB ports.VectorStore, storage ports.ObjectStorage) *ResetUseCase {
	return &ResetUseCase{
		repo:     repo,
		vectorDB: vectorDB,
		storage:  storage,
	}
}

func (uc *ResetUseCase) Reset(ctx context.Context) error {
	if err := uc.vectorDB.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear vector store: %w", err)
	}

	storageKeys, err := uc.repo.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("clear document metadata: %w", err)
	}

	for _, key := range storageKeys {
		if err := uc.storage.Delete(ctx, key); err != nil {
			slog.Warn("reset_storage_delete_failed", "key", key, "error", err)
		}
	}
	return nil
}
