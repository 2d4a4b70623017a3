package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mchmarny/dropwatch/pkg/model"
	"github.com/mchmarny/dropwatch/pkg/risk"
	"github.com/mchmarny/dropwatch/pkg/table"
	"github.com/mchmarny/dropwatch/pkg/triage"
)

const (
	maxUploadBytes = 32 << 20

	modelFormField = "model"
	fileFormField  = "file"
	topFormField   = "top"
)

type modelResponse struct {
	Loaded bool        `json:"loaded"`
	Model  *model.Info `json:"model,omitempty"`
}

type scoreResponse struct {
	Model   model.Info    `json:"model"`
	Summary table.Summary `json:"summary"`
	Columns []string      `json:"columns"`
	Rows    []table.Row   `json:"rows"`
	Top     []table.Row   `json:"top"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSON encodes v before writing the header, so an encoding failure
// becomes a 500 instead of a truncated success.
func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(b, '\n')); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// errorStatus maps scoring and model errors to an HTTP status and a
// metric reason.
func errorStatus(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, triage.ErrNoModel):
		return http.StatusConflict, "no_model"
	case errors.Is(err, risk.ErrInsufficientFeatures):
		return http.StatusUnprocessableEntity, "insufficient_features"
	case errors.Is(err, risk.ErrPredictionFailure):
		return http.StatusUnprocessableEntity, "prediction"
	case errors.Is(err, model.ErrLoadFailure):
		return http.StatusUnprocessableEntity, "load"
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "input"
	case errors.Is(err, table.ErrEmptyInput), errors.Is(err, table.ErrMalformedInput):
		return http.StatusBadRequest, "input"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// readUpload returns the named multipart file from the request.
func readUpload(w http.ResponseWriter, r *http.Request, field string) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("parsing upload: %w", err)
	}
	f, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("missing %q file in upload: %w", field, err)
	}
	return f, nil
}

func modelInfoAPIHandler(s *server) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		m := s.models.get()
		if m == nil {
			writeJSON(w, http.StatusOK, modelResponse{})
			return
		}
		info := m.Info()
		writeJSON(w, http.StatusOK, modelResponse{Loaded: true, Model: &info})
	}
}

func modelUploadAPIHandler(s *server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := readUpload(w, r, modelFormField)
		if err != nil {
			status, _ := errorStatus(err)
			if status == http.StatusInternalServerError {
				status = http.StatusBadRequest
			}
			writeError(w, status, err.Error())
			return
		}
		defer f.Close()

		b, err := io.ReadAll(f)
		if err != nil {
			writeError(w, http.StatusBadRequest, "error reading model upload")
			return
		}

		m, err := model.Import(s.models.path, b)
		if err != nil {
			status, _ := errorStatus(err)
			requestLog(r.Context()).Warn("model upload rejected", "error", err)
			writeError(w, status, triage.Message(err))
			return
		}

		s.models.set(m)
		s.metrics.SetModelLoaded(true)
		requestLog(r.Context()).Info("model replaced", "path", s.models.path, "kind", m.Info().Kind, "features", m.Info().Features)

		info := m.Info()
		writeJSON(w, http.StatusOK, modelResponse{Loaded: true, Model: &info})
	}
}

func scoreAPIHandler(s *server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		fail := func(err error) {
			status, reason := errorStatus(err)
			s.metrics.RecordFailure(reason)
			requestLog(r.Context()).Warn("no predictions", "reason", reason, "error", err)
			writeJSON(w, status, errorResponse{
				Error:   triage.Message(err),
				Message: triage.NoPredictionsMessage,
			})
		}

		m := s.models.get()
		if m == nil {
			fail(triage.ErrNoModel)
			return
		}

		f, err := readUpload(w, r, fileFormField)
		if err != nil {
			status, _ := errorStatus(err)
			if status == http.StatusInternalServerError {
				err = fmt.Errorf("%w: %w", table.ErrMalformedInput, err)
			}
			fail(err)
			return
		}
		defer f.Close()

		top := s.top
		if v := r.FormValue(topFormField); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid top value: %q", v))
				return
			}
			top = n
		}

		res, err := triage.Assess(m, f)
		if err != nil {
			fail(err)
			return
		}

		summary := res.Summary()
		s.metrics.RecordScore(summary, time.Since(start))
		requestLog(r.Context()).Debug("scored upload", "rows", summary.Total, "high", summary.High)

		writeJSON(w, http.StatusOK, scoreResponse{
			Model:   m.Info(),
			Summary: summary,
			Columns: res.Columns,
			Rows:    res.Rows,
			Top:     res.Top(top),
		})
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
