package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mchmarny/dropwatch/pkg/model"
	"github.com/mchmarny/dropwatch/pkg/net"
	urfave "github.com/urfave/cli/v3"
)

const (
	fromFlag     = "from"
	urlFlag      = "url"
	featuresFlag = "features"
	seedFlag     = "seed"
	outFlag      = "out"

	defaultSampleSeed = 42
)

var errImportSource = errors.New("exactly one of --from or --url is required")

func newModelCmd() *urfave.Command {
	return &urfave.Command{
		Name:    "model",
		Aliases: []string{"m"},
		Usage:   "Manage the risk model",
		Commands: []*urfave.Command{
			{
				Name:  "import",
				Usage: "Validate a model file and store it as the active model",
				UsageText: `dropwatch model import --from ./student_dropout_model.json
   dropwatch model import --url https://example.com/models/dropout.yaml`,
				Action: cmdModelImport,
				Flags: []urfave.Flag{
					&urfave.StringFlag{
						Name:  fromFlag,
						Usage: "Path to the model file",
					},
					&urfave.StringFlag{
						Name:  urlFlag,
						Usage: "URL to download the model file from",
					},
				},
			},
			{
				Name:   "inspect",
				Usage:  "Print metadata of the active model",
				Action: cmdModelInspect,
			},
			{
				Name:   "sample",
				Usage:  "Write a deterministic sample model for demos and tests",
				Action: cmdModelSample,
				Flags: []urfave.Flag{
					&urfave.IntFlag{
						Name:     featuresFlag,
						Usage:    "Number of numeric input columns",
						Required: true,
					},
					&urfave.IntFlag{
						Name:  seedFlag,
						Usage: "Seed for the coefficients",
						Value: defaultSampleSeed,
					},
					&urfave.StringFlag{
						Name:  outFlag,
						Usage: "Write to this path instead of stdout",
					},
				},
			},
		},
	}
}

func cmdModelImport(ctx context.Context, c *urfave.Command) error {
	cfg := getConfig(ctx)
	from, url := c.String(fromFlag), c.String(urlFlag)

	var (
		b   []byte
		err error
	)
	switch {
	case from != "" && url == "":
		b, err = os.ReadFile(from)
		if err != nil {
			return &model.LoadError{Path: from, Cause: err}
		}
	case url != "" && from == "":
		slog.Debug("downloading model", "url", url)
		b, err = net.Fetch(ctx, url)
		if err != nil {
			return fmt.Errorf("downloading model: %w", err)
		}
	default:
		return errImportSource
	}

	m, err := model.Import(cfg.ModelPath, b)
	if err != nil {
		return err
	}
	slog.Info("model imported", "path", cfg.ModelPath, "kind", m.Info().Kind, "features", m.Info().Features)

	return encode(cfg.Out, infoFormat(cfg.Format), m.Info())
}

func cmdModelInspect(ctx context.Context, _ *urfave.Command) error {
	cfg := getConfig(ctx)

	m, err := loadModel(cfg)
	if err != nil {
		return err
	}
	return encode(cfg.Out, infoFormat(cfg.Format), m.Info())
}

func cmdModelSample(ctx context.Context, c *urfave.Command) error {
	cfg := getConfig(ctx)

	seed := c.Int(seedFlag)
	if seed < 0 {
		return fmt.Errorf("seed must not be negative: %d", seed)
	}

	b, err := model.Sample(c.Int(featuresFlag), uint64(seed))
	if err != nil {
		return err
	}

	out := c.String(outFlag)
	if out == "" {
		_, err = cfg.Out.Write(b)
		return err
	}

	if err := model.Save(out, b); err != nil {
		return err
	}
	slog.Info("sample model written", "path", out)
	return nil
}

// infoFormat maps the table-only csv format to json for metadata output.
func infoFormat(f string) string {
	if f == formatCSV {
		return formatJSON
	}
	return f
}
