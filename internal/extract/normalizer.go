// Package extract turns raw uploaded bytes into clean natural-language text.
// Decoding is best-effort: structured formats degrade to warnings whenever
// any text is recoverable, and only entirely unusable input fails.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/smart-document-classifier/internal/core/domain"
)

const warnNoReadableText = "no readable text content"

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize decodes data according to the declared format. It is a pure
// function over its input. The returned warnings record every non-fatal
// extraction defect (fallback encoding, skipped pages, empty result).
func (n *Normalizer) Normalize(data []byte, format domain.Format) (string, []string, error) {
	if len(data) == 0 {
		return "", nil, domain.WrapError(domain.ErrExtraction, "normalize", errors.New("empty input"))
	}

	var (
		text     string
		warnings []string
		err      error
	)
	switch format {
	case domain.FormatTXT, domain.FormatMarkdown:
		text, warnings, err = decodePlainText(data)
	case domain.FormatPDF:
		text, warnings = decodePDF(data)
	case domain.FormatDOCX:
		text, warnings = decodeDOCX(data)
	case domain.FormatXLSX:
		text, warnings = decodeXLSX(data)
	case domain.FormatHTML:
		text, warnings = decodeHTML(data)
	default:
		return "", nil, domain.WrapError(domain.ErrExtraction, "normalize", fmt.Errorf("unrecognized format %q", format))
	}
	if err != nil {
		return "", nil, err
	}

	text = scrub(text)
	if text == "" {
		warnings = append(warnings, warnNoReadableText)
	}
	return text, warnings, nil
}

// scrub removes NUL bytes and non-printing controls that break downstream
// text columns, keeping common whitespace.
func scrub(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\x00", "")
	out := make([]rune, 0, len(s))
	for _, ch := range s {
		if ch == '\n' || ch == '\r' || ch == '\t' {
			out = append(out, ch)
			continue
		}
		if ch < 0x20 || ch == 0xFFFD {
			continue
		}
		out = append(out, ch)
	}
	return strings.TrimSpace(string(out))
}
