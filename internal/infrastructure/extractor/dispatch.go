package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/finqa/investor-qa/internal/core/domain"
	"github.com/finqa/investor-qa/internal/core/ports"
)

// Dispatcher routes a document to the extractor registered for its file
// extension. Unknown extensions fall back to the plaintext extractor, which
// rejects binary content on its own.
type Dispatcher struct {
	byExtension map[string]ports.TextExtractor
	fallback    ports.TextExtractor
}

func NewDispatcher(fallback ports.TextExtractor) *Dispatcher {
	return &Dispatcher{
		byExtension: make(map[string]ports.TextExtractor),
		fallback:    fallback,
	}
}

// Register binds an extractor to one extension, e.g. ".pdf".
func (d *Dispatcher) Register(ext string, e ports.TextExtractor) {
	d.byExtension[strings.ToLower(ext)] = e
}

func (d *Dispatcher) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	ext := strings.ToLower(filepath.Ext(doc.Filename))
	if e, ok := d.byExtension[ext]; ok {
		return e.Extract(ctx, doc)
	}
	if d.fallback == nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract",
			fmt.Errorf("unsupported file extension %q", ext))
	}
	return d.fallback.Extract(ctx, doc)
}
