package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// decodeXLSX flattens sheet rows into lines, one sheet after another.
// Unreadable sheets cost a warning each.
func decodeXLSX(data []byte) (string, []string) {
	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", []string{fmt.Sprintf("could not open XLSX workbook: %v", err)}
	}
	defer workbook.Close()

	var (
		builder  strings.Builder
		warnings []string
	)
	for _, sheet := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(sheet)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("sheet %q has no extractable rows: %v", sheet, err))
			continue
		}
		for _, row := range rows {
			line := strings.TrimSpace(strings.Join(row, " "))
			if line == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteByte('\n')
			}
			builder.WriteString(line)
		}
	}

	return builder.String(), warnings
}
