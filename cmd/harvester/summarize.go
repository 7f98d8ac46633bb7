package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/helixir/paper-harvester/internal/console"
	"github.com/helixir/paper-harvester/internal/export"
	"github.com/helixir/paper-harvester/internal/summary"
)

func summarizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "summarize",
		Usage: "summarize the abstract list of a previous harvest",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Usage:   "directory holding the abstract list, overrides output.dir",
			},
			&cli.Float64Flag{
				Name:  "ratio",
				Usage: "compression ratio of the first summary, overrides summary.default_ratio",
			},
		},
		Action: summarizeAction,
	}
}

func summarizeAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	if c.IsSet("output-dir") {
		e.cfg.Output.Dir = c.String("output-dir")
	}
	ratios := e.ratios()
	if c.IsSet("ratio") {
		r := c.Float64("ratio")
		if r <= 0 || r > 1 {
			return fmt.Errorf("ratio must be in (0, 1], got %v", r)
		}
		ratios.Default = r
	}
	defer e.flushMetrics()

	writer := export.NewWriter(e.files())
	corpus, err := writer.ReadAbstracts()
	if errors.Is(err, os.ErrNotExist) {
		files := writer.Files()
		return fmt.Errorf("no abstract list at %s, run harvest first", files.Path(files.AbstractList))
	}
	if err != nil {
		return err
	}
	con := console.New(e.in, e.out)
	ctrl := summary.NewController(summary.Extractive{}, writer, ratios, e.metrics, e.logger)
	return quiet(con.RunSummary(c.Context, ctrl, corpus))
}
