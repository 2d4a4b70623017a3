// Package triage scores an uploaded table with a loaded classifier.
package triage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mchmarny/dropwatch/pkg/model"
	"github.com/mchmarny/dropwatch/pkg/risk"
	"github.com/mchmarny/dropwatch/pkg/table"
)

// NoPredictionsMessage is shown whenever scoring did not produce records.
const NoPredictionsMessage = "No predictions were made. Ensure your CSV contains the numeric feature columns expected by the model."

var ErrNoModel = errors.New("no model loaded")

// Assess reads delimited rows from r, drops previously computed risk
// columns, scores the numeric columns with c, and returns the annotated
// rows in input order.
func Assess(c risk.Classifier, r io.Reader) (*table.Result, error) {
	if c == nil {
		return nil, ErrNoModel
	}

	// 1. Parse and drop derived columns.
	tbl, err := table.Read(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	tbl = tbl.DropDerived()

	// 2. Select numeric columns.
	m, err := tbl.Matrix()
	if err != nil {
		return nil, fmt.Errorf("building feature matrix: %w", err)
	}
	slog.Debug("feature matrix", "rows", m.Len(), "numeric", m.Cols(), "expected", c.Features())

	// 3. Score.
	records, err := risk.Score(m, c)
	if err != nil {
		return nil, err
	}

	// 4. Annotate.
	res, err := tbl.Annotate(records)
	if err != nil {
		return nil, fmt.Errorf("annotating rows: %w", err)
	}
	return res, nil
}

// Message returns the text shown to a user for an error returned by
// Assess or by model loading.
func Message(err error) string {
	var (
		ife *risk.InsufficientFeaturesError
		le  *model.LoadError
		pe  *risk.PredictionError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ife):
		return fmt.Sprintf("Uploaded CSV has %d numeric columns but the model expects %d. "+
			"Please provide a CSV with the required numeric feature columns.", ife.Actual, ife.Expected)
	case errors.As(err, &le):
		return fmt.Sprintf("Model could not be loaded: %v", le.Cause)
	case errors.As(err, &pe):
		return fmt.Sprintf("The model could not score the data: %v", pe.Cause)
	case errors.Is(err, ErrNoModel):
		return "Model file not found. Upload a trained model file, or import one with 'dropwatch model import'."
	case errors.Is(err, table.ErrEmptyInput), errors.Is(err, table.ErrMalformedInput):
		return fmt.Sprintf("The uploaded file is not a valid CSV: %v", err)
	default:
		return err.Error()
	}
}
