package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/mchmarny/dropwatch/pkg/risk"
)

// DefaultTop is the size of the highest risk list.
const DefaultTop = 20

var ErrRowNotFound = errors.New("row not found")

// Row is one input row with its risk record. Index is the zero-based
// position of the row in the input.
type Row struct {
	Index       int      `json:"index" yaml:"index"`
	Values      []string `json:"values" yaml:"values"`
	risk.Record `yaml:",inline"`
}

// Result is a table annotated with one risk record per row, kept in
// input order.
type Result struct {
	Columns []string `json:"columns" yaml:"columns"`
	Rows    []Row    `json:"rows" yaml:"rows"`
}

// Summary counts rows per risk tier.
type Summary struct {
	Total  int `json:"total" yaml:"total"`
	High   int `json:"high" yaml:"high"`
	Medium int `json:"medium" yaml:"medium"`
	Low    int `json:"low" yaml:"low"`
}

// Annotate pairs every row with its record. Existing risk columns are
// replaced.
func (t *Table) Annotate(records []risk.Record) (*Result, error) {
	t = t.DropDerived()
	if len(records) != t.Len() {
		return nil, fmt.Errorf("got %d risk records for %d rows", len(records), t.Len())
	}

	res := &Result{
		Columns: t.header,
		Rows:    make([]Row, len(records)),
	}
	for i, r := range records {
		res.Rows[i] = Row{Index: i, Values: t.rows[i], Record: r}
	}
	return res, nil
}

// Len returns the number of rows.
func (r *Result) Len() int {
	return len(r.Rows)
}

// Top returns up to n rows ordered by score, highest first. Rows with
// equal scores keep input order. n <= 0 returns every row.
func (r *Result) Top(n int) []Row {
	list := slices.Clone(r.Rows)
	slices.SortStableFunc(list, func(a, b Row) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if n > 0 && n < len(list) {
		list = list[:n]
	}
	return list
}

// Lookup returns the row at the given input index.
func (r *Result) Lookup(index int) (*Row, error) {
	if index < 0 || index >= len(r.Rows) {
		return nil, fmt.Errorf("%w: index %d (rows: %d)", ErrRowNotFound, index, len(r.Rows))
	}
	row := r.Rows[index]
	return &row, nil
}

// Value returns the named cell of a row, or false when the column does
// not exist.
func (r *Result) Value(row *Row, column string) (string, bool) {
	for i, c := range r.Columns {
		if c == column {
			return row.Values[i], true
		}
	}
	return "", false
}

// Summary counts the rows in each tier.
func (r *Result) Summary() Summary {
	s := Summary{Total: len(r.Rows)}
	for _, row := range r.Rows {
		switch row.Label {
		case risk.LabelHigh:
			s.High++
		case risk.LabelMedium:
			s.Medium++
		case risk.LabelLow:
			s.Low++
		}
	}
	return s
}

// WriteCSV writes the original columns followed by the risk columns for
// the given rows.
func (r *Result) WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)

	header := append(slices.Clone(r.Columns), ScoreColumn, LabelColumn)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, row := range rows {
		rec := append(slices.Clone(row.Values), FormatScore(row.Score), row.Label.String())
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row %d: %w", row.Index, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// FormatScore renders a score with the fewest digits that round-trip.
func FormatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
