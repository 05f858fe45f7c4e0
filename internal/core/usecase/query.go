package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/finqa/investor-qa/internal/core/domain"
)

const previewMaxLength = 150

// QueryUseCase runs the read path end to end: retrieve context, drive the
// provider fallback chain, and assemble the structured answer with source
// attributions.
type QueryUseCase struct {
	retriever   *Retriever
	coordinator *Coordinator
}

func NewQueryUseCase(retriever *Retriever, coordinator *Coordinator) *QueryUseCase {
	return &QueryUseCase{
		retriever:   retriever,
		coordinator: coordinator,
	}
}

func (uc *QueryUseCase) Ask(ctx context.Context, question string, settings domain.QuerySettings) (*domain.Answer, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	chunks, err := uc.retriever.Retrieve(ctx, question, settings)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	// A provider is invoked even with zero context so the caller always
	// gets the same response shape.
	parsed, providerUsed, err := uc.coordinator.Generate(ctx, question, chunks, settings.Provider)
	if err != nil {
		return nil, err
	}

	return &domain.Answer{
		Question:           question,
		Text:               parsed.Answer,
		Confidence:         parsed.Confidence,
		Reasoning:          parsed.Reasoning,
		Sources:            buildSources(chunks),
		ChunksFound:        len(chunks),
		ProviderUsed:       providerUsed,
		ConfidenceUnparsed: parsed.ConfidenceUnparsed,
	}, nil
}

func buildSources(chunks []domain.RetrievedChunk) []domain.Source {
	sources := make([]domain.Source, 0, len(chunks))
	for _, chunk := range chunks {
		sources = append(sources, domain.Source{
			Filename:       chunk.Filename,
			RelevanceScore: math.Round(chunk.Score*1000) / 10,
			Preview:        chunkPreview(chunk.Text, previewMaxLength),
		})
	}
	return sources
}

// chunkPreview truncates text for source display, preferring a sentence
// boundary and falling back to a word boundary.
func chunkPreview(text string, maxLength int) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}

	truncated := string(runes[:maxLength])
	lastSentence := -1
	for _, ending := range []string{". ", "! ", "? "} {
		if pos := strings.LastIndex(truncated, ending); pos > lastSentence {
			lastSentence = pos
		}
	}
	if lastSentence > maxLength*7/10 {
		return truncated[:lastSentence+1] + "..."
	}

	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > maxLength*8/10 {
		return truncated[:lastSpace] + "..."
	}
	return truncated + "..."
}
