package grounding

import (
	"strings"

	"github.com/plantops/opsbrief/pkg/models"
)

// injectionOverlap is the minimum word overlap between a claim and a
// sentence for the citation to attach there.
const injectionOverlap = 0.3

const refusalMessage = "I cannot provide a reliable answer to this question based on the available data. " +
	"Try rephrasing with a specific asset, metric, or date."

const maxDisclaimerExcerpts = 3

// injectCitations appends each grounded claim's best citation tag to
// the response sentence that carries the claim. Sentences never
// receive the same tag twice.
func injectCitations(text string, results []models.GroundingResult) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return text
	}

	for _, result := range results {
		if !result.IsGrounded || len(result.SupportingCitations) == 0 {
			continue
		}
		tag := result.SupportingCitations[0].DisplayText
		idx := bestSentence(result.ClaimText, sentences)
		if idx < 0 || strings.Contains(sentences[idx], tag) {
			continue
		}
		sentences[idx] = appendTag(sentences[idx], tag)
	}
	return strings.Join(sentences, "")
}

// splitSentences keeps separators attached so the joined parts
// reproduce the original text exactly. A period flanked by digits is
// a decimal point, not a sentence boundary.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	for i, r := range runes {
		switch r {
		case '!', '?', '\n':
		case '.':
			if i > 0 && i+1 < len(runes) && isDigit(runes[i-1]) && isDigit(runes[i+1]) {
				continue
			}
		default:
			continue
		}
		sentences = append(sentences, string(runes[start:i+1]))
		start = i + 1
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// bestSentence returns the index of the sentence with the highest
// word overlap against the claim, or -1 below the threshold.
func bestSentence(claim string, sentences []string) int {
	claimWords := wordSet(claim)
	bestIdx, bestOverlap := -1, injectionOverlap
	for i, s := range sentences {
		overlap := overlapFraction(claimWords, wordSet(s))
		if overlap >= bestOverlap {
			bestIdx, bestOverlap = i, overlap
		}
	}
	return bestIdx
}

// appendTag places the tag inside the sentence, before trailing
// punctuation and whitespace.
func appendTag(sentence, tag string) string {
	trimmed := strings.TrimRight(sentence, " \t")
	trailing := sentence[len(trimmed):]
	if n := len(trimmed); n > 0 {
		switch trimmed[n-1] {
		case '.', '!', '?', '\n':
			return trimmed[:n-1] + " " + tag + trimmed[n-1:] + trailing
		}
	}
	return trimmed + " " + tag + trailing
}

// disclaimer enumerates up to three ungrounded claim excerpts.
func disclaimer(ungrounded []string) string {
	if len(ungrounded) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nNote: the following statements could not be verified against plant data:")
	for i, claim := range ungrounded {
		if i >= maxDisclaimerExcerpts {
			break
		}
		b.WriteString("\n- ")
		b.WriteString(truncate(claim, 80))
	}
	return b.String()
}
