package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// decodePDF walks pages individually so one unreadable page costs a warning,
// not the document. Encrypted or structurally broken files degrade to zero
// recovered text plus a warning.
func decodePDF(data []byte) (string, []string) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", []string{fmt.Sprintf("could not parse PDF structure: %v", err)}
	}

	var (
		builder  strings.Builder
		warnings []string
	)
	for pageNr := 1; pageNr <= reader.NumPage(); pageNr++ {
		page := reader.Page(pageNr)
		if page.V.IsNull() {
			warnings = append(warnings, fmt.Sprintf("page %d has no content", pageNr))
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d has no extractable text", pageNr))
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteByte('\n')
		}
		builder.WriteString(pageText)
	}

	return builder.String(), warnings
}
