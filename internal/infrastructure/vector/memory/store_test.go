package memory

import (
	"context"
	"testing"

	"github.com/finqa/investor-qa/internal/core/domain"
)

func seed(t *testing.T, s *Store, doc *domain.Document, chunks ...domain.Chunk) {
	t.Helper()
	if err := s.UpsertChunks(context.Background(), doc, chunks); err != nil {
		t.Fatalf("UpsertChunks failed: %v", err)
	}
}

func TestSearchRanksAcrossDocuments(t *testing.T) {
	s := NewStore()
	seed(t, s, &domain.Document{ID: "doc-1", Filename: "a.pdf"},
		domain.Chunk{ID: "c1", DocumentID: "doc-1", Ordinal: 0, Text: "strong", Embedding: []float32{1, 0}},
		domain.Chunk{ID: "c2", DocumentID: "doc-1", Ordinal: 1, Text: "weak", Embedding: []float32{0.2, 1}},
	)
	seed(t, s, &domain.Document{ID: "doc-2", Filename: "b.txt"},
		domain.Chunk{ID: "c3", DocumentID: "doc-2", Ordinal: 0, Text: "medium", Embedding: []float32{1, 0.5}},
	)

	got, err := s.SimilaritySearch(context.Background(), []float32{1, 0}, 2, nil)
	if err != nil {
		t.Fatalf("SimilaritySearch failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Text != "strong" || got[1].Text != "medium" {
		t.Fatalf("unexpected ranking: %q then %q", got[0].Text, got[1].Text)
	}
	if got[0].Filename != "a.pdf" {
		t.Fatalf("filename not carried: %+v", got[0])
	}
}

func TestSearchNeverReturnsConfidentialChunks(t *testing.T) {
	s := NewStore()
	seed(t, s, &domain.Document{ID: "doc-secret", Filename: "s.pdf", Confidential: true},
		domain.Chunk{ID: "c1", DocumentID: "doc-secret", Ordinal: 0, Text: "secret", Embedding: []float32{1, 0}},
	)
	seed(t, s, &domain.Document{ID: "doc-pub", Filename: "p.pdf"},
		domain.Chunk{ID: "c2", DocumentID: "doc-pub", Ordinal: 0, Text: "public", Embedding: []float32{1, 0}},
	)

	got, err := s.SimilaritySearch(context.Background(), []float32{1, 0}, 10, []string{"doc-secret"})
	if err != nil {
		t.Fatalf("SimilaritySearch failed: %v", err)
	}
	for _, chunk := range got {
		if chunk.DocumentID == "doc-secret" {
			t.Fatalf("confidential chunk leaked: %+v", chunk)
		}
	}
	if len(got) != 1 || got[0].Text != "public" {
		t.Fatalf("expected only the public chunk, got %+v", got)
	}

	// Defense in depth: the flag alone must hide it even without exclusions.
	got, err = s.SimilaritySearch(context.Background(), []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatalf("SimilaritySearch failed: %v", err)
	}
	if len(got) != 1 || got[0].DocumentID != "doc-pub" {
		t.Fatalf("confidential flag not honored: %+v", got)
	}
}

func TestReUpsertReplacesChunkSet(t *testing.T) {
	s := NewStore()
	doc := &domain.Document{ID: "doc-1", Filename: "a.pdf"}
	seed(t, s, doc,
		domain.Chunk{ID: "old-0", DocumentID: "doc-1", Ordinal: 0, Text: "old", Embedding: []float32{1, 0}},
		domain.Chunk{ID: "old-1", DocumentID: "doc-1", Ordinal: 1, Text: "old2", Embedding: []float32{1, 0}},
	)
	seed(t, s, doc,
		domain.Chunk{ID: "new-0", DocumentID: "doc-1", Ordinal: 0, Text: "new", Embedding: []float32{1, 0}},
	)

	got, err := s.SimilaritySearch(context.Background(), []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatalf("SimilaritySearch failed: %v", err)
	}
	if len(got) != 1 || got[0].Text != "new" {
		t.Fatalf("old chunks survived re-upsert: %+v", got)
	}
}

func TestDeleteAllThenSearchIsEmpty(t *testing.T) {
	s := NewStore()
	seed(t, s, &domain.Document{ID: "doc-1", Filename: "a.pdf"},
		domain.Chunk{ID: "c1", DocumentID: "doc-1", Ordinal: 0, Text: "t", Embedding: []float32{1, 0}},
	)

	if err := s.DeleteAll(context.Background()); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	got, err := s.SimilaritySearch(context.Background(), []float32{1, 0}, 10, nil)
	if err != nil {
		t.Fatalf("SimilaritySearch failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result after reset, got %+v", got)
	}
}

func TestDeterministicTieBreak(t *testing.T) {
	s := NewStore()
	seed(t, s, &domain.Document{ID: "doc-b", Filename: "b.pdf"},
		domain.Chunk{ID: "b0", DocumentID: "doc-b", Ordinal: 0, Text: "b0", Embedding: []float32{1, 0}},
	)
	seed(t, s, &domain.Document{ID: "doc-a", Filename: "a.pdf"},
		domain.Chunk{ID: "a0", DocumentID: "doc-a", Ordinal: 0, Text: "a0", Embedding: []float32{1, 0}},
		domain.Chunk{ID: "a1", DocumentID: "doc-a", Ordinal: 1, Text: "a1", Embedding: []float32{1, 0}},
	)

	for i := 0; i < 5; i++ {
		got, err := s.SimilaritySearch(context.Background(), []float32{1, 0}, 10, nil)
		if err != nil {
			t.Fatalf("SimilaritySearch failed: %v", err)
		}
		if len(got) != 3 || got[0].Text != "a0" || got[1].Text != "b0" || got[2].Text != "a1" {
			t.Fatalf("ordering not deterministic on run %d: %+v", i, got)
		}
	}
}
