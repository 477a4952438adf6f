package google

import (
	"fmt"
	"strings"
)

const (
	lastColumn   = "J"
	statusColumn = "I"
)

// firstColumn flattens a values matrix to the trimmed first cell of each row.
// Empty rows keep their position so indexes map to sheet rows.
func firstColumn(values [][]any) []string {
	out := make([]string, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(row[0]))
	}
	return out
}

// findRow returns the 1-based sheet row holding id, skipping the header, or 0.
func findRow(ids []string, id string) int {
	id = strings.TrimSpace(id)
	for i, v := range ids {
		if i == 0 && strings.EqualFold(v, "ID") {
			continue
		}
		if v == id {
			return i + 1
		}
	}
	return 0
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", sheet, row, lastColumn, row)
}
