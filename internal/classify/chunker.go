package classify

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/kirillkom/smart-document-classifier/internal/classify/token"
)

const defaultMaxTokens = 800

// ChunkPlan is the deterministic split of one document for a given backend
// token budget. Chunks keep document order and are never empty.
type ChunkPlan struct {
	Chunks             []string
	OriginalTokenCount int
	WasChunked         bool
}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// BuildPlan splits text so that every chunk fits within maxTokens. Text that
// already fits is returned untouched as a single chunk. Longer text is packed
// greedily along paragraph boundaries, then sentence boundaries, and only as
// a last resort hard-split at the word level.
func BuildPlan(text string, maxTokens int) ChunkPlan {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	total := token.Count(text)
	if strings.TrimSpace(text) == "" {
		return ChunkPlan{OriginalTokenCount: 0}
	}
	if total <= maxTokens {
		return ChunkPlan{
			Chunks:             []string{text},
			OriginalTokenCount: total,
		}
	}

	spans := boundarySpans(text, maxTokens)
	chunks := packSpans(spans, maxTokens)

	return ChunkPlan{
		Chunks:             chunks,
		OriginalTokenCount: total,
		WasChunked:         len(chunks) > 1,
	}
}

// boundarySpans yields ordered spans that each fit within maxTokens:
// paragraphs first, oversized paragraphs broken into sentences, oversized
// sentences hard-split into maxTokens-sized word runs.
func boundarySpans(text string, maxTokens int) []string {
	var spans []string
	for _, para := range paragraphBreak.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if token.Count(para) <= maxTokens {
			spans = append(spans, para)
			continue
		}
		for _, sentence := range splitSentences(para) {
			if token.Count(sentence) <= maxTokens {
				spans = append(spans, sentence)
				continue
			}
			words := token.Words(sentence)
			for start := 0; start < len(words); start += maxTokens {
				end := start + maxTokens
				if end > len(words) {
					end = len(words)
				}
				spans = append(spans, strings.Join(words[start:end], " "))
			}
		}
	}
	return spans
}

// packSpans greedily joins consecutive spans while the running token count
// stays within maxTokens.
func packSpans(spans []string, maxTokens int) []string {
	var (
		chunks  []string
		current []string
		used    int
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, "\n"))
		current = current[:0]
		used = 0
	}

	for _, span := range spans {
		n := token.Count(span)
		if used > 0 && used+n > maxTokens {
			flush()
		}
		current = append(current, span)
		used += n
	}
	flush()
	return chunks
}

func splitSentences(paragraph string) []string {
	runes := []rune(paragraph)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			j := i + 1
			for j < len(runes) && (runes[j] == '.' || runes[j] == '!' || runes[j] == '?') {
				j++
			}
			if j >= len(runes) || unicode.IsSpace(runes[j]) {
				if s := strings.TrimSpace(string(runes[start:j])); s != "" {
					out = append(out, s)
				}
				start = j
				i = j - 1
			}
		}
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	return out
}
