package usecase

import "testing"

func TestParseWellFormedResponse(t *testing.T) {
	raw := `ANSWER:
Revenue grew 12% year over year.
Driven mostly by the services segment.

CONFIDENCE: 85

REASONING: The context states the figure directly.`

	parsed := ParseProviderResponse(raw)
	if parsed.Answer != "Revenue grew 12% year over year.\nDriven mostly by the services segment." {
		t.Fatalf("unexpected answer: %q", parsed.Answer)
	}
	if parsed.Confidence != 85 {
		t.Fatalf("expected confidence 85, got %d", parsed.Confidence)
	}
	if parsed.Reasoning != "The context states the figure directly." {
		t.Fatalf("unexpected reasoning: %q", parsed.Reasoning)
	}
	if parsed.ConfidenceUnparsed {
		t.Fatalf("confidence should have parsed")
	}
}

func TestParseCaseInsensitiveMarkersWithMarkdown(t *testing.T) {
	raw := "**Answer:** The margin held at 31%.\n\n**confidence:** 70\n\n**Reasoning:** Stated in document 1."

	parsed := ParseProviderResponse(raw)
	if parsed.Answer != "The margin held at 31%." {
		t.Fatalf("unexpected answer: %q", parsed.Answer)
	}
	if parsed.Confidence != 70 {
		t.Fatalf("expected confidence 70, got %d", parsed.Confidence)
	}
	if parsed.Reasoning != "Stated in document 1." {
		t.Fatalf("unexpected reasoning: %q", parsed.Reasoning)
	}
}

func TestParseNoMarkersFallsBackToWholeText(t *testing.T) {
	raw := "The company reported solid results across all segments."

	parsed := ParseProviderResponse(raw)
	if parsed.Answer != raw {
		t.Fatalf("expected whole text as answer, got %q", parsed.Answer)
	}
	if parsed.Confidence != 50 {
		t.Fatalf("expected default confidence 50, got %d", parsed.Confidence)
	}
	if parsed.Reasoning != "" {
		t.Fatalf("expected empty reasoning, got %q", parsed.Reasoning)
	}
}

func TestParseConfidenceClamping(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"ANSWER: x\nCONFIDENCE: 250", 100},
		{"ANSWER: x\nCONFIDENCE: 100", 100},
		{"ANSWER: x\nCONFIDENCE: 0", 0},
		{"ANSWER: x\nCONFIDENCE: 95%", 95},
	}
	for _, tc := range cases {
		parsed := ParseProviderResponse(tc.raw)
		if parsed.Confidence != tc.want {
			t.Fatalf("raw %q: confidence = %d, want %d", tc.raw, parsed.Confidence, tc.want)
		}
		if parsed.ConfidenceUnparsed {
			t.Fatalf("raw %q: confidence should have parsed", tc.raw)
		}
	}
}

func TestParseConfidenceKeywordFallback(t *testing.T) {
	parsed := ParseProviderResponse("ANSWER: x\nCONFIDENCE: very high")
	if parsed.Confidence != 85 {
		t.Fatalf("expected keyword confidence 85, got %d", parsed.Confidence)
	}
}

func TestParseUnparsableConfidenceFlagged(t *testing.T) {
	parsed := ParseProviderResponse("ANSWER: x\nCONFIDENCE: who knows\nREASONING: y")
	if parsed.Confidence != 50 {
		t.Fatalf("expected conservative confidence 50, got %d", parsed.Confidence)
	}
	if !parsed.ConfidenceUnparsed {
		t.Fatalf("expected ConfidenceUnparsed flag")
	}
}

func TestParseEmptyAnswerSectionFallsBackToRaw(t *testing.T) {
	raw := "CONFIDENCE: 20"
	parsed := ParseProviderResponse(raw)
	if parsed.Answer != raw {
		t.Fatalf("expected raw fallback answer, got %q", parsed.Answer)
	}
	if parsed.Confidence != 20 {
		t.Fatalf("expected confidence 20, got %d", parsed.Confidence)
	}
}
