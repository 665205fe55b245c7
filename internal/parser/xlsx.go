package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// parseXLSX flattens every sheet into tab separated rows. Workbooks with
// more than one sheet get each block prefixed with the sheet name so the
// origin of a row survives chunking. Sheets with no cell content are
// dropped.
func parseXLSX(content []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("read workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	blocks := make([]string, 0, len(sheets))
	for _, name := range sheets {
		rows, err := f.GetRows(name)
		if err != nil {
			return "", fmt.Errorf("sheet %s: %w", name, err)
		}
		lines := make([]string, 0, len(rows)+1)
		if len(sheets) > 1 {
			lines = append(lines, name)
		}
		empty := true
		for _, row := range rows {
			line := strings.TrimRight(strings.Join(row, "\t"), "\t")
			if line != "" {
				empty = false
			}
			lines = append(lines, line)
		}
		if empty {
			continue
		}
		blocks = append(blocks, strings.TrimSpace(strings.Join(lines, "\n")))
	}
	return strings.Join(blocks, "\n\n"), nil
}
