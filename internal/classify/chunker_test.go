package classify

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kirillkom/smart-document-classifier/internal/classify/token"
)

func TestBuildPlanKeepsShortTextWhole(t *testing.T) {
	text := "A short document that fits the budget."
	plan := BuildPlan(text, 100)

	if plan.WasChunked {
		t.Fatalf("expected short text to stay unchunked")
	}
	if len(plan.Chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(plan.Chunks))
	}
	if plan.Chunks[0] != text {
		t.Fatalf("expected text preserved verbatim, got %q", plan.Chunks[0])
	}
	if plan.OriginalTokenCount != 7 {
		t.Fatalf("expected 7 tokens, got %d", plan.OriginalTokenCount)
	}
}

func TestBuildPlanEmptyTextHasNoChunks(t *testing.T) {
	plan := BuildPlan("   \n\t  ", 100)
	if len(plan.Chunks) != 0 {
		t.Fatalf("expected no chunks for blank text, got %d", len(plan.Chunks))
	}
	if plan.WasChunked {
		t.Fatalf("blank text must not report chunking")
	}
}

func TestBuildPlanSplitsOnParagraphBoundaries(t *testing.T) {
	var paragraphs []string
	for i := 0; i < 6; i++ {
		paragraphs = append(paragraphs, fmt.Sprintf("paragraph %d %s", i, strings.Repeat("word ", 7)))
	}
	text := strings.Join(paragraphs, "\n\n")

	plan := BuildPlan(text, 20)
	if !plan.WasChunked {
		t.Fatalf("expected chunking for text over budget")
	}
	for i, chunk := range plan.Chunks {
		if n := token.Count(chunk); n > 20 {
			t.Fatalf("chunk %d has %d tokens, budget is 20", i, n)
		}
		if strings.TrimSpace(chunk) == "" {
			t.Fatalf("chunk %d is empty", i)
		}
	}
}

func TestBuildPlanHardSplitsOversizedSentence(t *testing.T) {
	// One unbroken sentence far over budget, no paragraph or
	// sentence boundary to cut at.
	text := strings.TrimSpace(strings.Repeat("token ", 50))

	plan := BuildPlan(text, 10)
	if !plan.WasChunked {
		t.Fatalf("expected hard split")
	}
	if len(plan.Chunks) != 5 {
		t.Fatalf("expected 5 chunks of 10 tokens, got %d", len(plan.Chunks))
	}
	for i, chunk := range plan.Chunks {
		if n := token.Count(chunk); n != 10 {
			t.Fatalf("chunk %d has %d tokens, expected 10", i, n)
		}
	}
}

func TestBuildPlanPreservesAllWordsInOrder(t *testing.T) {
	var words []string
	for i := 0; i < 120; i++ {
		words = append(words, fmt.Sprintf("w%03d", i))
	}
	text := strings.Join(words[:60], " ") + "\n\n" + strings.Join(words[60:], " ")

	plan := BuildPlan(text, 25)
	var got []string
	for _, chunk := range plan.Chunks {
		got = append(got, token.Words(chunk)...)
	}
	if len(got) != len(words) {
		t.Fatalf("expected %d words after chunking, got %d", len(words), len(got))
	}
	for i := range words {
		if got[i] != words[i] {
			t.Fatalf("word %d out of order: expected %q, got %q", i, words[i], got[i])
		}
	}
}

func TestBuildPlanIsDeterministic(t *testing.T) {
	text := strings.Repeat("alpha beta gamma. ", 200)
	first := BuildPlan(text, 30)
	second := BuildPlan(text, 30)

	if len(first.Chunks) != len(second.Chunks) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first.Chunks), len(second.Chunks))
	}
	for i := range first.Chunks {
		if first.Chunks[i] != second.Chunks[i] {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestBuildPlanDefaultsBudgetWhenUnset(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("word ", 900))
	plan := BuildPlan(text, 0)
	if !plan.WasChunked {
		t.Fatalf("expected default budget of 800 tokens to force chunking")
	}
	for i, chunk := range plan.Chunks {
		if n := token.Count(chunk); n > 800 {
			t.Fatalf("chunk %d has %d tokens over default budget", i, n)
		}
	}
}
