package usecase

import (
	"strings"
	"unicode"
)

// ParsedResponse is the structured form of a provider's raw text reply.
type ParsedResponse struct {
	Answer             string
	Confidence         int
	Reasoning          string
	ConfidenceUnparsed bool
}

const defaultConfidence = 50

// ParseProviderResponse extracts the ANSWER/CONFIDENCE/REASONING sections
// from a raw reply. Markers are matched case-insensitively and tolerate
// leading markdown decoration. When no markers are present at all, the whole
// reply becomes the answer so formatting drift never fails a request.
func ParseProviderResponse(raw string) ParsedResponse {
	parsed := ParsedResponse{Confidence: defaultConfidence}
	sawMarker := false
	confidenceSeen := false

	var answer, reasoning []string
	current := ""

	for _, line := range strings.Split(raw, "\n") {
		marker, rest, ok := sectionMarker(line)
		if ok {
			sawMarker = true
			current = marker
			switch marker {
			case "ANSWER":
				if rest != "" {
					answer = append(answer, rest)
				}
			case "CONFIDENCE":
				parsed.Confidence, confidenceSeen = extractConfidence(rest)
			case "REASONING":
				if rest != "" {
					reasoning = append(reasoning, rest)
				}
			}
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		switch current {
		case "ANSWER":
			answer = append(answer, trimmed)
		case "REASONING":
			reasoning = append(reasoning, trimmed)
		case "CONFIDENCE":
			if !confidenceSeen {
				parsed.Confidence, confidenceSeen = extractConfidence(trimmed)
			}
		}
	}

	parsed.Answer = strings.Join(answer, "\n")
	parsed.Reasoning = strings.Join(reasoning, " ")

	if !sawMarker {
		return ParsedResponse{
			Answer:     strings.TrimSpace(raw),
			Confidence: defaultConfidence,
			Reasoning:  "",
		}
	}
	if parsed.Answer == "" {
		parsed.Answer = strings.TrimSpace(raw)
	}
	parsed.ConfidenceUnparsed = !confidenceSeen
	return parsed
}

func sectionMarker(line string) (string, string, bool) {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimLeft(trimmed, "#*- ")
	upper := strings.ToUpper(trimmed)

	for _, marker := range []string{"ANSWER", "CONFIDENCE", "REASONING"} {
		if !strings.HasPrefix(upper, marker) {
			continue
		}
		rest := trimmed[len(marker):]
		rest = strings.TrimLeft(rest, "* ")
		if !strings.HasPrefix(rest, ":") {
			continue
		}
		rest = strings.TrimSpace(strings.Trim(rest[1:], "* "))
		return marker, rest, true
	}
	return "", "", false
}

// extractConfidence pulls the first integer out of the confidence text and
// clamps it to [0,100]. Keyword fallbacks cover replies like "high"; only a
// fully unparsable value reports false.
func extractConfidence(text string) (int, bool) {
	value := 0
	digits := false
	for _, r := range text {
		if unicode.IsDigit(r) {
			digits = true
			value = value*10 + int(r-'0')
			if value > 100 {
				value = 100
			}
			continue
		}
		if digits {
			break
		}
	}
	if digits {
		if value < 0 {
			value = 0
		}
		return value, true
	}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "high") || strings.Contains(lower, "certain"):
		return 85, true
	case strings.Contains(lower, "medium") || strings.Contains(lower, "moderate"):
		return 65, true
	case strings.Contains(lower, "low") || strings.Contains(lower, "uncertain"):
		return 35, true
	}
	return defaultConfidence, false
}
