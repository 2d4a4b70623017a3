package model

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
)

const (
	sampleName  = "sample-dropout"
	sampleScale = 0.5
)

type sampleDoc struct {
	Header
	Logistic logisticParams `json:"logistic"`
}

// Sample returns a logistic model document with coefficients drawn from a
// seeded generator. It exists to exercise the tool end to end without a
// trained model; the same seed always yields the same bytes.
func Sample(features int, seed uint64) ([]byte, error) {
	if features <= 0 {
		return nil, fmt.Errorf("features must be positive, got %d", features)
	}

	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	coef := make([]float64, features)
	for i := range coef {
		coef[i] = (r.Float64()*2 - 1) * sampleScale
	}

	doc := sampleDoc{
		Header: Header{
			Format:   Format,
			Version:  SchemaVersion,
			Kind:     KindLogistic,
			Name:     sampleName,
			Features: features,
			Classes:  []int{0, 1},
		},
		Logistic: logisticParams{Coef: coef},
	}

	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding sample model: %w", err)
	}
	return append(b, '\n'), nil
}
