// Package ingest parses customer review spreadsheets (XLSX and CSV)
// into rows ready for analysis, with flexible column name matching.
package ingest

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/feedback-cli/internal/model"
)

// Row is one parsed review from an uploaded file. Line is the
// 1-based position in the source file, header included.
type Row struct {
	Line          int
	CustomerName  string
	CustomerEmail string
	ReviewText    string
	Rating        *int
}

// RowError records a row that could not be parsed. Bad rows never
// abort the file; they are collected and reported alongside the
// successfully parsed rows.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Result holds the outcome of parsing one file.
type Result struct {
	Rows   []Row
	Errors []RowError
}

// columnAliases maps each logical field to accepted header names.
// Matching is case-insensitive on the trimmed header cell.
var columnAliases = map[string][]string{
	"name":   {"customer_name", "customer name", "name", "customer"},
	"email":  {"customer_email", "customer email", "email", "mail", "e-mail"},
	"review": {"review_text", "review text", "review", "comment", "comments", "feedback", "text"},
	"rating": {"rating", "score", "stars"},
}

// ReadFile parses a review spreadsheet, dispatching on file extension.
func ReadFile(path string) (*Result, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xls":
		rows, err := readXLSXRows(path)
		if err != nil {
			return nil, err
		}
		return parseRows(rows)
	case ".csv":
		rows, err := readCSVRows(path)
		if err != nil {
			return nil, err
		}
		return parseRows(rows)
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q (want .xlsx or .csv)", filepath.Ext(path))
	}
}

// columnMap resolves header cells to field positions. Returns an error
// naming the missing field when a required column cannot be found.
func columnMap(header []string) (map[string]int, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	cols := make(map[string]int)
	for field, aliases := range columnAliases {
		for _, alias := range aliases {
			for i, h := range normalized {
				if h == alias {
					cols[field] = i
					break
				}
			}
			if _, ok := cols[field]; ok {
				break
			}
		}
	}

	for _, required := range []string{"name", "email", "review"} {
		if _, ok := cols[required]; !ok {
			return nil, eris.Errorf("ingest: no %s column found in header %v", required, header)
		}
	}
	return cols, nil
}

func parseRows(rows [][]string) (*Result, error) {
	if len(rows) == 0 {
		return nil, eris.New("ingest: file is empty")
	}

	cols, err := columnMap(rows[0])
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for i, cells := range rows[1:] {
		line := i + 2 // 1-based, after the header
		if emptyRow(cells) {
			continue
		}

		row := Row{
			Line:          line,
			CustomerName:  cell(cells, cols["name"]),
			CustomerEmail: strings.ToLower(cell(cells, cols["email"])),
			ReviewText:    cell(cells, cols["review"]),
		}
		if idx, ok := cols["rating"]; ok {
			row.Rating = parseRating(cell(cells, idx))
		}

		if reason := validateRow(row); reason != "" {
			result.Errors = append(result.Errors, RowError{Line: line, Reason: reason})
			continue
		}
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}

func validateRow(row Row) string {
	switch {
	case row.CustomerName == "":
		return "missing customer name"
	case row.CustomerEmail == "":
		return "missing customer email"
	case !model.ValidEmailAddress(row.CustomerEmail):
		return "invalid customer email: " + row.CustomerEmail
	case row.ReviewText == "":
		return "missing review text"
	}
	return ""
}

// parseRating accepts integer or decimal cell values in [1, 5].
// Anything else yields nil; a bad rating never rejects the row.
func parseRating(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	n := int(f)
	if float64(n) != f || n < 1 || n > 5 {
		return nil
	}
	return &n
}

func cell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func emptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
