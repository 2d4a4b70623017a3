package risk

import (
	"errors"
	"fmt"
	"math"
)

const (
	// HighThreshold is the lowest score labeled High.
	HighThreshold = 0.70
	// MediumThreshold is the lowest score labeled Medium.
	MediumThreshold = 0.40

	positiveClass = 1
)

// Label is the risk tier assigned to a score.
type Label string

const (
	LabelLow    Label = "Low"
	LabelMedium Label = "Medium"
	LabelHigh   Label = "High"
)

// Labels lists all tiers from lowest to highest.
var Labels = []Label{LabelLow, LabelMedium, LabelHigh}

func (l Label) String() string {
	return string(l)
}

// LabelFor buckets a score into a tier. Lower bounds are inclusive.
func LabelFor(score float64) Label {
	switch {
	case score >= HighThreshold:
		return LabelHigh
	case score >= MediumThreshold:
		return LabelMedium
	default:
		return LabelLow
	}
}

// ParseLabel converts a string back into a Label.
func ParseLabel(s string) (Label, error) {
	for _, l := range Labels {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("invalid risk label: %q", s)
}

// Record is the scoring result for a single row.
type Record struct {
	Score float64 `json:"risk_score" yaml:"risk_score"`
	Label Label   `json:"risk_label" yaml:"risk_label"`
}

// Classifier predicts class probabilities for a batch of rows.
type Classifier interface {
	// Features returns the number of input columns the classifier expects.
	Features() int
	// PredictProba returns one probability vector per input row.
	PredictProba(x [][]float64) ([][]float64, error)
}

// Score runs the classifier over every row of m and labels the positive
// class probability. Columns beyond the classifier width are ignored.
func Score(m *Matrix, c Classifier) ([]Record, error) {
	if m == nil {
		return nil, errors.New("feature matrix required")
	}
	if c == nil {
		return nil, errors.New("classifier required")
	}

	want := c.Features()
	if m.Cols() < want {
		return nil, &InsufficientFeaturesError{Actual: m.Cols(), Expected: want}
	}

	if m.Len() == 0 {
		return []Record{}, nil
	}

	probs, err := c.PredictProba(m.Leading(want))
	if err != nil {
		return nil, &PredictionError{Cause: err}
	}

	if len(probs) != m.Len() {
		return nil, &PredictionError{
			Cause: fmt.Errorf("classifier returned %d predictions for %d rows", len(probs), m.Len()),
		}
	}

	list := make([]Record, len(probs))
	for i, p := range probs {
		if len(p) <= positiveClass {
			return nil, &PredictionError{
				Cause: fmt.Errorf("row %d: expected at least 2 class probabilities, got %d", i, len(p)),
			}
		}
		s := p[positiveClass]
		if math.IsNaN(s) || s < 0 || s > 1 {
			return nil, &PredictionError{
				Cause: fmt.Errorf("row %d: positive class probability %v is outside [0, 1]", i, s),
			}
		}
		list[i] = Record{Score: s, Label: LabelFor(s)}
	}

	return list, nil
}
