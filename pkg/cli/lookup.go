package cli

import (
	"context"

	"github.com/mchmarny/dropwatch/pkg/risk"
	"github.com/mchmarny/dropwatch/pkg/table"
	urfave "github.com/urfave/cli/v3"
)

const rowFlag = "row"

func newLookupCmd() *urfave.Command {
	return &urfave.Command{
		Name:    "lookup",
		Aliases: []string{"l"},
		Usage:   "Print the risk score and level of a single row",
		Action:  cmdLookup,
		Flags: []urfave.Flag{
			newFileFlag(),
			&urfave.IntFlag{
				Name:     rowFlag,
				Aliases:  []string{"r"},
				Usage:    "Zero-based index of the row in the CSV file",
				Required: true,
			},
		},
	}
}

type lookupResult struct {
	Index       int               `json:"index" yaml:"index"`
	Values      map[string]string `json:"values" yaml:"values"`
	risk.Record `yaml:",inline"`
}

func cmdLookup(ctx context.Context, c *urfave.Command) error {
	cfg := getConfig(ctx)

	res, _, err := assessFile(cfg, c.String(fileFlag))
	if err != nil {
		return err
	}

	row, err := res.Lookup(c.Int(rowFlag))
	if err != nil {
		return err
	}

	if cfg.Format == formatCSV {
		return res.WriteCSV(cfg.Out, []table.Row{*row})
	}

	out := &lookupResult{
		Index:  row.Index,
		Values: make(map[string]string, len(res.Columns)),
		Record: row.Record,
	}
	for _, col := range res.Columns {
		out.Values[col], _ = res.Value(row, col)
	}
	return encode(cfg.Out, cfg.Format, out)
}
