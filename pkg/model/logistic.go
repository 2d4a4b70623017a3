package model

import (
	"fmt"
	"math"

	"github.com/mchmarny/dropwatch/pkg/risk"
)

const KindLogistic = "logistic"

type logisticParams struct {
	Coef      []float64 `json:"coef" yaml:"coef"`
	Intercept float64   `json:"intercept" yaml:"intercept"`
}

// Logistic is a linear model with a sigmoid link.
type Logistic struct {
	features  int
	coef      []float64
	intercept float64
}

func init() {
	Register(KindLogistic, decodeLogistic)
}

func decodeLogistic(h Header, unmarshal func(v any) error) (risk.Classifier, error) {
	var doc struct {
		Logistic *logisticParams `json:"logistic" yaml:"logistic"`
	}
	if err := unmarshal(&doc); err != nil {
		return nil, invalid("decoding logistic section: %v", err)
	}
	if doc.Logistic == nil {
		return nil, invalid("missing logistic section")
	}
	return NewLogistic(h.Features, doc.Logistic.Coef, doc.Logistic.Intercept)
}

// NewLogistic creates a logistic classifier with one coefficient per feature.
func NewLogistic(features int, coef []float64, intercept float64) (*Logistic, error) {
	if features <= 0 {
		return nil, invalid("features must be positive, got %d", features)
	}
	if len(coef) != features {
		return nil, invalid("logistic has %d coefficients for %d features", len(coef), features)
	}
	for i, c := range coef {
		if !finite(c) {
			return nil, invalid("coefficient %d is not finite", i)
		}
	}
	if !finite(intercept) {
		return nil, invalid("intercept is not finite")
	}
	return &Logistic{features: features, coef: coef, intercept: intercept}, nil
}

func (l *Logistic) Features() int {
	return l.features
}

func (l *Logistic) PredictProba(x [][]float64) ([][]float64, error) {
	if err := checkInput(x, l.features); err != nil {
		return nil, err
	}

	out := make([][]float64, len(x))
	for i, row := range x {
		z := l.intercept
		for j, c := range l.coef {
			z += c * row[j]
		}
		if !finite(z) {
			return nil, fmt.Errorf("row %d: linear term is not finite", i)
		}
		p := sigmoid(z)
		out[i] = []float64{1 - p, p}
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
