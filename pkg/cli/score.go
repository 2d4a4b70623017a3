package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mchmarny/dropwatch/pkg/model"
	"github.com/mchmarny/dropwatch/pkg/table"
	"github.com/mchmarny/dropwatch/pkg/triage"
	urfave "github.com/urfave/cli/v3"
)

const (
	stdinPath = "-"

	fileFlag = "file"
	topFlag  = "top"
	allFlag  = "all"
)

func newFileFlag() *urfave.StringFlag {
	return &urfave.StringFlag{
		Name:     fileFlag,
		Aliases:  []string{"f"},
		Usage:    "Path to the CSV file to score (- reads stdin)",
		Required: true,
	}
}

func newScoreCmd() *urfave.Command {
	return &urfave.Command{
		Name:    "score",
		Aliases: []string{"s"},
		Usage:   "Score every row of a CSV file",
		UsageText: `dropwatch score --file students.csv             # top 20 highest risk rows
   dropwatch score --file students.csv --top 5     # top 5
   dropwatch --format csv score -f students.csv --all > scored.csv`,
		Action: cmdScore,
		Flags: []urfave.Flag{
			newFileFlag(),
			&urfave.IntFlag{
				Name:  topFlag,
				Usage: fmt.Sprintf("Number of highest risk rows to print (default: %d)", table.DefaultTop),
			},
			&urfave.BoolFlag{
				Name:  allFlag,
				Usage: "Print every row in input order instead of the highest risk rows",
			},
		},
	}
}

type scoreResult struct {
	Model   model.Info    `json:"model" yaml:"model"`
	Summary table.Summary `json:"summary" yaml:"summary"`
	Columns []string      `json:"columns" yaml:"columns"`
	Rows    []table.Row   `json:"rows" yaml:"rows"`
}

func cmdScore(ctx context.Context, c *urfave.Command) error {
	cfg := getConfig(ctx)

	res, m, err := assessFile(cfg, c.String(fileFlag))
	if err != nil {
		return err
	}

	rows := res.Rows
	if !c.Bool(allFlag) {
		top := cfg.Config.Top
		if c.IsSet(topFlag) {
			top = c.Int(topFlag)
		}
		rows = res.Top(top)
	}

	if cfg.Format == formatCSV {
		return res.WriteCSV(cfg.Out, rows)
	}

	return encode(cfg.Out, cfg.Format, &scoreResult{
		Model:   m.Info(),
		Summary: res.Summary(),
		Columns: res.Columns,
		Rows:    rows,
	})
}

// assessFile loads the configured model and scores the file at path.
func assessFile(cfg *appConfig, path string) (*table.Result, *model.Model, error) {
	m, err := loadModel(cfg)
	if err != nil {
		return nil, nil, err
	}

	in, err := openInput(path)
	if err != nil {
		return nil, nil, err
	}
	defer in.Close()

	res, err := triage.Assess(m, in)
	if err != nil {
		slog.Warn(triage.NoPredictionsMessage)
		return nil, nil, err
	}
	slog.Debug("scored", "file", path, "rows", res.Len())

	return res, m, nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == stdinPath {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input file: %w", err)
	}
	return f, nil
}
