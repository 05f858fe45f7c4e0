package provider

import (
	"fmt"
	"strings"

	"github.com/finqa/investor-qa/internal/core/domain"
)

// BuildPrompt renders the grounding prompt shared by every vendor adapter:
// role preamble, context block with per-chunk source and relevance, the
// verbatim question, and the labeled output format the response parser
// expects.
func BuildPrompt(question string, chunks []domain.RetrievedChunk) string {
	var context strings.Builder
	if len(chunks) > 0 {
		context.WriteString("CONTEXT FROM DOCUMENTS:\n\n")
		for i, chunk := range chunks {
			context.WriteString(fmt.Sprintf("Document %d (%s, relevance: %.2f):\n%s\n\n", i+1, chunk.Filename, chunk.Score, chunk.Text))
		}
	} else {
		context.WriteString("CONTEXT: No relevant documents found.\n\n")
	}

	return fmt.Sprintf(`You are a professional, concise corporate investor-relations assistant. Answer using only the provided context.

%s
QUESTION: %s

Please provide your response in the following format:

ANSWER:
[Your answer here]

CONFIDENCE: [Provide a confidence score from 0-100]

REASONING: [Briefly explain your confidence score]

Guidelines:
- Use only the information provided in the context
- If the context is insufficient, say so directly
- Do only light clean up of the language for clarity`, context.String(), question)
}
