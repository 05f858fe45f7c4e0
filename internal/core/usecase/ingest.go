package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finqa/investor-qa/internal/core/domain"
	"github.com/finqa/investor-qa/internal/core/ports"
)

// IngestDocumentUseCase accepts an upload, stores the original file, records
// metadata and queues the document for asynchronous processing. The
// confidentiality flag is fixed here and never changes afterwards.
type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestDocumentUseCase) Upload(ctx context.Context, req ports.UploadRequest) (*domain.Document, error) {
	if strings.TrimSpace(req.Filename) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("filename is required"))
	}
	if req.ChunkSize <= 0 || req.ChunkOverlap < 0 || req.ChunkOverlap >= req.ChunkSize {
		return nil, domain.WrapError(domain.ErrInvalidConfiguration, "upload", errors.New("chunk parameters out of bounds"))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(req.Filename))
	now := time.Now().UTC()

	size, err := uc.storage.Save(ctx, storageKey, req.Body)
	if err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:           id,
		Filename:     req.Filename,
		StoragePath:  storageKey,
		Confidential: req.Confidential,
		SizeBytes:    size,
		ChunkSize:    req.ChunkSize,
		ChunkOverlap: req.ChunkOverlap,
		Status:       domain.StatusUploaded,
		UploadedAt:   now,
		UpdatedAt:    now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.queue.PublishDocumentUploaded(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish upload event: %w", err)
	}

	return doc, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
