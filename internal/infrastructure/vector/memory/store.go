package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/finqa/investor-qa/internal/core/domain"
	"github.com/finqa/investor-qa/internal/infrastructure/vector"
)

const defaultMinSimilarity = 0.1

type indexedChunk struct {
	chunk        domain.Chunk
	filename     string
	confidential bool
}

// Store is the in-process vector backend. It mirrors the Postgres store's
// semantics (atomic per-document replace, confidentiality filter, ranking
// and tie-break order) and backs local development and tests.
type Store struct {
	mu            sync.RWMutex
	byDocument    map[string][]indexedChunk
	minSimilarity float64
}

func NewStore() *Store {
	return &Store{
		byDocument:    make(map[string][]indexedChunk),
		minSimilarity: defaultMinSimilarity,
	}
}

func (s *Store) UpsertChunks(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	indexed := make([]indexedChunk, 0, len(chunks))
	for _, chunk := range chunks {
		indexed = append(indexed, indexedChunk{
			chunk:        chunk,
			filename:     doc.Filename,
			confidential: doc.Confidential,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byDocument[doc.ID] = indexed
	return nil
}

func (s *Store) SimilaritySearch(_ context.Context, queryVector []float32, k int, excludeDocumentIDs []string) ([]domain.RetrievedChunk, error) {
	if k <= 0 {
		return []domain.RetrievedChunk{}, nil
	}
	excluded := make(map[string]struct{}, len(excludeDocumentIDs))
	for _, id := range excludeDocumentIDs {
		excluded[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]domain.RetrievedChunk, 0)
	for docID, chunks := range s.byDocument {
		if _, skip := excluded[docID]; skip {
			continue
		}
		for _, ic := range chunks {
			if ic.confidential {
				continue
			}
			score := vector.CosineSimilarity(queryVector, ic.chunk.Embedding)
			if score < s.minSimilarity {
				continue
			}
			scored = append(scored, domain.RetrievedChunk{
				DocumentID: docID,
				Filename:   ic.filename,
				Ordinal:    ic.chunk.Ordinal,
				Text:       ic.chunk.Text,
				Score:      score,
			})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Ordinal != scored[j].Ordinal {
			return scored[i].Ordinal < scored[j].Ordinal
		}
		return scored[i].DocumentID < scored[j].DocumentID
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (s *Store) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byDocument = make(map[string][]indexedChunk)
	return nil
}
