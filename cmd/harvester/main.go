// Package main is the interactive paper harvester: it searches the Springer
// OpenAccess API, saves the article metadata, downloads the PDFs and
// summarizes the collected abstracts.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdin, os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the command tree. Prompts read from in and write to out.
func newApp(in io.Reader, out io.Writer) *cli.App {
	return &cli.App{
		Name:           "harvester",
		Usage:          "search, download and summarize open access papers",
		Reader:         in,
		Writer:         out,
		ErrWriter:      os.Stderr,
		DefaultCommand: "harvest",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				EnvVars: []string{"HARVESTER_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log at debug level",
			},
		},
		Commands: []*cli.Command{
			harvestCommand(),
			summarizeCommand(),
			runsCommand(),
		},
	}
}
