package extract

import (
	"bytes"
	"errors"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	xunicode "golang.org/x/text/encoding/unicode"

	"github.com/kirillkom/smart-document-classifier/internal/core/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodePlainText tries a prioritized list of encodings: UTF-8, UTF-16 (BOM
// sniffed), Windows-1252. The first successful decode wins; anything after
// UTF-8 is reported as a fallback-encoding warning.
func decodePlainText(data []byte) (string, []string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if utf8.Valid(data) {
		return string(data), nil, nil
	}

	if hasUTF16BOM(data) {
		decoder := xunicode.UTF16(xunicode.LittleEndian, xunicode.ExpectBOM).NewDecoder()
		decoded, err := decoder.Bytes(data)
		if err == nil && utf8.Valid(decoded) {
			return string(decoded), []string{"decoded with UTF-16 fallback encoding"}, nil
		}
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err == nil {
		text := string(decoded)
		if printableRatio(text) >= 0.7 {
			return text, []string{"decoded with Windows-1252 fallback encoding"}, nil
		}
	}

	return "", nil, domain.WrapError(domain.ErrExtraction, "decode plain text",
		errors.New("no supported character encoding produced text"))
}

func hasUTF16BOM(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	return (data[0] == 0xFF && data[1] == 0xFE) || (data[0] == 0xFE && data[1] == 0xFF)
}

func printableRatio(s string) float64 {
	if s == "" {
		return 0
	}
	var printable, total int
	for _, r := range s {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	return float64(printable) / float64(total)
}
