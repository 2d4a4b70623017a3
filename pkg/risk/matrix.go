package risk

import "fmt"

// Matrix is a row-major table of numeric features with a fixed width.
type Matrix struct {
	cols int
	rows [][]float64
}

// NewMatrix validates that every row has exactly cols values.
func NewMatrix(cols int, rows [][]float64) (*Matrix, error) {
	if cols < 0 {
		return nil, fmt.Errorf("invalid column count: %d", cols)
	}
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(r), cols)
		}
	}
	return &Matrix{cols: cols, rows: rows}, nil
}

// Cols returns the matrix width.
func (m *Matrix) Cols() int {
	return m.cols
}

// Len returns the number of rows.
func (m *Matrix) Len() int {
	return len(m.rows)
}

// Row returns the i-th row.
func (m *Matrix) Row(i int) []float64 {
	return m.rows[i]
}

// Leading returns a view of the first n columns of every row.
func (m *Matrix) Leading(n int) [][]float64 {
	if n >= m.cols {
		return m.rows
	}
	out := make([][]float64, len(m.rows))
	for i, r := range m.rows {
		out[i] = r[:n:n]
	}
	return out
}
