package notion

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVMapper maps a CSV row to a flat key-value map using the header row.
type CSVMapper struct{}

// MapRow pairs each header with the corresponding value in the row. Missing
// trailing values become empty strings.
func (m CSVMapper) MapRow(headers []string, row []string) map[string]string {
	result := make(map[string]string, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if i < len(row) {
			result[h] = strings.TrimSpace(row[i])
		} else {
			result[h] = ""
		}
	}
	return result
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string, keyColumns ...string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: open csv %s", path)
	}
	defer f.Close() //nolint:errcheck

	return ReadCSV(f, keyColumns...)
}

// ReadCSV reads header-keyed rows. When keyColumns are given, the first of
// them present in the header (case-insensitive) is the row key: rows with a
// blank or repeated key are dropped.
func ReadCSV(r io.Reader, keyColumns ...string) ([]map[string]string, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "notion: read csv")
	}
	if len(records) < 2 {
		return nil, nil
	}

	headers := records[0]
	keyIdx := -1
	for _, k := range keyColumns {
		for i, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), k) {
				keyIdx = i
				break
			}
		}
		if keyIdx >= 0 {
			break
		}
	}

	mapper := CSVMapper{}
	seen := make(map[string]struct{})
	var rows []map[string]string
	for _, row := range records[1:] {
		if keyIdx >= 0 {
			key := ""
			if keyIdx < len(row) {
				key = strings.ToLower(strings.TrimSpace(row[keyIdx]))
			}
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		rows = append(rows, mapper.MapRow(headers, row))
	}
	return rows, nil
}
