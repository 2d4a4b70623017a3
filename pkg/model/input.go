package model

import (
	"fmt"
	"math"
)

// checkInput rejects rows narrower than the model or holding values the
// model cannot compare against.
func checkInput(x [][]float64, features int) error {
	for i, row := range x {
		if len(row) < features {
			return fmt.Errorf("row %d has %d features, model expects %d", i, len(row), features)
		}
		for j := 0; j < features; j++ {
			if math.IsNaN(row[j]) {
				return fmt.Errorf("input contains NaN at row %d, column %d", i, j)
			}
			if math.IsInf(row[j], 0) {
				return fmt.Errorf("input contains infinity at row %d, column %d", i, j)
			}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
