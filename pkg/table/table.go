// Package table reads delimited text into rows, selects the numeric
// columns used as model features, and renders scored rows back out.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/mchmarny/dropwatch/pkg/risk"
)

const (
	// ScoreColumn and LabelColumn are appended to annotated output and
	// dropped from input before scoring.
	ScoreColumn = "risk_score"
	LabelColumn = "risk_label"

	byteOrderMark = "\ufeff"
)

var (
	ErrEmptyInput     = errors.New("input has no header row")
	ErrMalformedInput = errors.New("malformed input")

	// naValues are the cell values treated as missing, matching what
	// spreadsheet exports and pandas write for empty numbers.
	naValues = map[string]bool{
		"":         true,
		"#N/A":     true,
		"#N/A N/A": true,
		"#NA":      true,
		"-1.#IND":  true,
		"-1.#QNAN": true,
		"-NaN":     true,
		"-nan":     true,
		"1.#IND":   true,
		"1.#QNAN":  true,
		"<NA>":     true,
		"N/A":      true,
		"NA":       true,
		"NULL":     true,
		"NaN":      true,
		"None":     true,
		"n/a":      true,
		"nan":      true,
		"null":     true,
	}
)

// Table is a parsed delimited file: a header plus rows of raw cells.
type Table struct {
	header []string
	rows   [][]string
}

// New creates a table from a header and rows of equal width.
func New(header []string, rows [][]string) (*Table, error) {
	if len(header) == 0 {
		return nil, ErrEmptyInput
	}
	for i, r := range rows {
		if len(r) != len(header) {
			return nil, fmt.Errorf("%w: row %d has %d fields, header has %d", ErrMalformedInput, i, len(r), len(header))
		}
	}
	return &Table{header: dedupe(header), rows: rows}, nil
}

// Read parses CSV with a header row.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if len(recs) == 0 {
		return nil, ErrEmptyInput
	}

	header := recs[0]
	header[0] = strings.TrimPrefix(header[0], byteOrderMark)
	return New(header, recs[1:])
}

// dedupe renames repeated column names to name.1, name.2 and so on.
func dedupe(header []string) []string {
	seen := make(map[string]bool, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		name := h
		for n := 1; seen[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

// Columns returns the column names in file order.
func (t *Table) Columns() []string {
	return t.header
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the raw cells of row i.
func (t *Table) Row(i int) []string {
	return t.rows[i]
}

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.header {
		if h == name {
			return i
		}
	}
	return -1
}

// DropDerived returns a table without previously computed risk columns.
func (t *Table) DropDerived() *Table {
	keep := make([]int, 0, len(t.header))
	for i, h := range t.header {
		if h == ScoreColumn || h == LabelColumn {
			continue
		}
		keep = append(keep, i)
	}
	if len(keep) == len(t.header) {
		return t
	}
	return t.project(keep)
}

func (t *Table) project(cols []int) *Table {
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = t.header[c]
	}
	rows := make([][]string, len(t.rows))
	for r, row := range t.rows {
		out := make([]string, len(cols))
		for i, c := range cols {
			out[i] = row[c]
		}
		rows[r] = out
	}
	return &Table{header: header, rows: rows}
}

// Numeric returns the names of columns whose every cell is a number or a
// missing value. A table without data rows has no numeric columns.
func (t *Table) Numeric() []string {
	list := make([]string, 0)
	for _, i := range t.numericIndexes() {
		list = append(list, t.header[i])
	}
	return list
}

func (t *Table) numericIndexes() []int {
	list := make([]int, 0, len(t.header))
	if len(t.rows) == 0 {
		return list
	}
	for c := range t.header {
		numeric := true
		for _, row := range t.rows {
			if _, ok := parseCell(row[c]); !ok {
				numeric = false
				break
			}
		}
		if numeric {
			list = append(list, c)
		}
	}
	return list
}

// Matrix builds the feature matrix from the numeric columns in file
// order. Missing values become NaN.
func (t *Table) Matrix() (*risk.Matrix, error) {
	cols := t.numericIndexes()
	rows := make([][]float64, len(t.rows))
	for r, row := range t.rows {
		vals := make([]float64, len(cols))
		for i, c := range cols {
			v, ok := parseCell(row[c])
			if !ok {
				return nil, fmt.Errorf("row %d column %s: not a number: %q", r, t.header[c], row[c])
			}
			vals[i] = v
		}
		rows[r] = vals
	}
	return risk.NewMatrix(len(cols), rows)
}

func parseCell(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if naValues[s] {
		return math.NaN(), true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
