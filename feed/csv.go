package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Row is one CSV record keyed by its raw header names.
type Row map[string]any

// CSVOptions adjusts rows as they are loaded.
type CSVOptions struct {
	// Symbol, if set, overwrites the symbol column of every row.
	Symbol string
	// SortByDate orders rows oldest first by the DATE column.
	SortByDate bool
}

var dateLayouts = []string{
	"02-Jan-2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// LoadCSV reads a market-data export. Headers are kept verbatim so the
// JSON sent to clients matches the export's spelling.
func LoadCSV(path string, opts CSVOptions) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ReadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return rows, nil
}

func ReadCSV(r io.Reader, opts CSVOptions) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	symbolKey, dateKey := "SYMBOL", "DATE"
	for _, h := range header {
		switch strings.ToUpper(strings.TrimSpace(h)) {
		case "SYMBOL":
			symbolKey = h
		case "DATE":
			dateKey = h
		}
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 0 {
			continue
		}

		row := make(Row, len(header))
		for i, h := range header {
			if i >= len(rec) {
				break
			}
			row[h] = cell(rec[i])
		}
		if opts.Symbol != "" {
			row[symbolKey] = opts.Symbol
		}
		rows = append(rows, row)
	}

	if opts.SortByDate {
		sort.SliceStable(rows, func(i, j int) bool {
			return parseDate(rows[i][dateKey]).Before(parseDate(rows[j][dateKey]))
		})
	}
	return rows, nil
}

// cell turns plain numbers into float64 and leaves anything else as text.
func cell(s string) any {
	t := strings.TrimSpace(s)
	if n, err := strconv.ParseFloat(t, 64); err == nil {
		return n
	}
	return s
}

func parseDate(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
