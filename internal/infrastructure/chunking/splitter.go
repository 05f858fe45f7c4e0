package chunking

import (
	"errors"
	"strings"

	"github.com/finqa/investor-qa/internal/core/domain"
)

// Splitter cuts text into consecutive character windows of the requested
// size, each window starting size-overlap runes after the previous one. The
// final window covers whatever remains and may be shorter. Windows never cut
// through a multi-byte character and whitespace-only windows are dropped.
type Splitter struct{}

func NewSplitter() *Splitter {
	return &Splitter{}
}

func (s *Splitter) Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidConfiguration, "split text", errors.New("chunk size must be > 0"))
	}
	if overlap < 0 || overlap >= size {
		return nil, domain.WrapError(domain.ErrInvalidConfiguration, "split text", errors.New("overlap must satisfy 0 <= overlap < size"))
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return []string{}, nil
	}

	step := size - overlap
	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		window := string(runes[start:end])
		if strings.TrimSpace(window) != "" {
			out = append(out, window)
		}
		if end == len(runes) {
			break
		}
	}
	return out, nil
}
