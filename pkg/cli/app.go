package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/dropwatch/pkg/config"
	"github.com/mchmarny/dropwatch/pkg/logging"
	"github.com/mchmarny/dropwatch/pkg/model"
	"github.com/mchmarny/dropwatch/pkg/triage"
	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName    = "dropwatch"
	homeDirEnv = "DROPWATCH_HOME"

	formatJSON = "json"
	formatYAML = "yaml"
	formatCSV  = "csv"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""

	errUnsupportedFormat = errors.New("unsupported output format")
)

const (
	debugFlag     = "debug"
	formatFlag    = "format"
	modelPathFlag = "model"
	configDirFlag = "config"
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger("info")

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", triage.Message(err))
		os.Exit(1)
	}
}

type appConfig struct {
	Debug     bool
	Format    string
	Dir       string
	ModelPath string
	Config    *config.Config
	Out       io.Writer
}

type appConfigKey struct{}

func getConfig(ctx context.Context) *appConfig {
	if cfg, ok := ctx.Value(appConfigKey{}).(*appConfig); ok {
		return cfg
	}
	return &appConfig{Format: formatJSON, Config: &config.Config{}, Out: os.Stdout}
}

func newApp() *urfave.Command {
	return &urfave.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Early warning risk scores for student dropout",
		Flags: []urfave.Flag{
			&urfave.BoolFlag{
				Name:  debugFlag,
				Usage: "Prints verbose logs (optional, default: false)",
			},
			&urfave.StringFlag{
				Name:  formatFlag,
				Usage: "Output format [json, yaml, csv]",
				Value: formatJSON,
			},
			&urfave.StringFlag{
				Name:  modelPathFlag,
				Usage: fmt.Sprintf("Path to the model file (default: ~/.%s/%s)", appName, model.DefaultFileName),
			},
			&urfave.StringFlag{
				Name:    configDirFlag,
				Usage:   fmt.Sprintf("Config directory (default: ~/.%s)", appName),
				Sources: urfave.EnvVars(homeDirEnv),
			},
		},
		Commands: []*urfave.Command{
			newScoreCmd(),
			newLookupCmd(),
			newModelCmd(),
			newServerCmd(),
		},
		Before: func(ctx context.Context, c *urfave.Command) (context.Context, error) {
			debug := c.Bool(debugFlag)
			if debug {
				logging.SetDefaultCLILogger("debug")
			}

			format, err := parseFormat(c.String(formatFlag))
			if err != nil {
				return ctx, err
			}

			dir := c.String(configDirFlag)
			if dir == "" {
				if dir, _, err = config.GetOrCreateHomeDir(appName); err != nil {
					return ctx, fmt.Errorf("resolving home dir: %w", err)
				}
			}

			conf, err := config.ReadOrCreate(dir)
			if err != nil {
				return ctx, fmt.Errorf("reading config: %w", err)
			}

			cfg := &appConfig{
				Debug:     debug,
				Format:    format,
				Dir:       dir,
				ModelPath: resolveModelPath(c.String(modelPathFlag), conf.ModelPath, dir),
				Config:    conf,
				Out:       c.Root().Writer,
			}
			if cfg.Out == nil {
				cfg.Out = os.Stdout
			}
			slog.Debug("config", "dir", cfg.Dir, "model", cfg.ModelPath, "format", cfg.Format)

			return context.WithValue(ctx, appConfigKey{}, cfg), nil
		},
	}
}

// resolveModelPath picks the flag, then the config file, then the default
// file in the config dir.
func resolveModelPath(flag, configured, dir string) string {
	switch {
	case flag != "":
		return flag
	case configured != "":
		return configured
	default:
		return filepath.Join(dir, model.DefaultFileName)
	}
}

func parseFormat(f string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(f)) {
	case "", formatJSON:
		return formatJSON, nil
	case formatYAML, "yml":
		return formatYAML, nil
	case formatCSV:
		return formatCSV, nil
	default:
		return "", fmt.Errorf("%w: %s", errUnsupportedFormat, f)
	}
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML:
		e := yaml.NewEncoder(w)
		defer e.Close()
		return e.Encode(v)
	case formatJSON:
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(v)
	default:
		return fmt.Errorf("%w for this command: %s", errUnsupportedFormat, format)
	}
}

// loadModel loads the model from the configured path. A missing file is
// reported as triage.ErrNoModel.
func loadModel(cfg *appConfig) (*model.Model, error) {
	m, found, err := model.LoadIfExists(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", triage.ErrNoModel, cfg.ModelPath)
	}
	return m, nil
}
