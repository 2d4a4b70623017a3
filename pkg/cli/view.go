package cli

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/mchmarny/dropwatch/pkg/risk"
	"github.com/mchmarny/dropwatch/pkg/table"
	"github.com/mchmarny/dropwatch/pkg/triage"
)

var viewFuncs = template.FuncMap{
	"score": table.FormatScore,
}

func faviconHandler(w http.ResponseWriter, r *http.Request) {
	file, err := embedFS.ReadFile("assets/img/favicon.svg")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if _, err = w.Write(file); err != nil {
		slog.Error("failed to write favicon", "error", err)
	}
}

func homeViewHandler(tmpl *template.Template, s *server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := map[string]any{
			"version":          version,
			"commit":           commit,
			"build_date":       date,
			"err":              r.URL.Query().Get("err"),
			"top":              s.top,
			"high_threshold":   risk.HighThreshold,
			"medium_threshold": risk.MediumThreshold,
			"no_predictions":   triage.NoPredictionsMessage,
		}
		if m := s.models.get(); m != nil {
			d["model"] = m.Info()
		}
		if err := tmpl.ExecuteTemplate(w, "home", d); err != nil {
			slog.Error("template render failed", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
}
