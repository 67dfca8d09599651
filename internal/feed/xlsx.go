package feed

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DecodeXLSX reads the first sheet of a workbook as a feed. The first
// non-empty row holds the field names; each later non-empty row becomes a
// Record whose Line is the 1-based sheet row number. Empty cells are left out
// of Fields so optional fields stay absent.
func DecodeXLSX(r io.Reader, feedName string) ([]Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%s feed: %w", feedName, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%s feed: %w", feedName, err)
	}

	var headers []string
	out := []Record{}
	for i, row := range rows {
		cells := normalizeCells(row)
		if isBlankRow(cells) {
			continue
		}
		if headers == nil {
			headers = headerKeys(cells)
			continue
		}

		fields := make(map[string]any, len(headers))
		for c, key := range headers {
			if key == "" || c >= len(cells) || cells[c] == "" {
				continue
			}
			fields[key] = cells[c]
		}
		out = append(out, Record{Line: i + 1, Fields: fields})
	}
	return out, nil
}

func isXLSX(source string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(source)), ".xlsx")
}

// headerKeys maps header captions like "Product Name" or "announced date" to
// the JSON field names used by the line feeds.
func headerKeys(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		key := strings.ToLower(c)
		key = strings.ReplaceAll(key, " ", "_")
		if key == "announced_date" {
			key = "announced-date"
		}
		out[i] = key
	}
	return out
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		out = append(out, strings.Join(strings.Fields(c), " "))
	}
	return out
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
