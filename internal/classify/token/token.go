// Package token provides the whitespace token heuristic shared by the chunker
// and the scorer diagnostics. Model-exact tokenization belongs to the
// inference server; the counts here only have to be stable and conservative
// relative to a backend's input budget.
package token

import "strings"

// Count returns the number of whitespace-delimited tokens in text.
func Count(text string) int {
	return len(strings.Fields(text))
}

// Words returns the whitespace-delimited tokens of text in order.
func Words(text string) []string {
	return strings.Fields(text)
}
