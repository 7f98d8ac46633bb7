package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/helixir/paper-harvester/internal/console"
	"github.com/helixir/paper-harvester/internal/domain"
	"github.com/helixir/paper-harvester/internal/export"
	"github.com/helixir/paper-harvester/internal/papersources"
	"github.com/helixir/paper-harvester/internal/papersources/springer"
	"github.com/helixir/paper-harvester/internal/pdf"
	"github.com/helixir/paper-harvester/internal/pipeline"
	"github.com/helixir/paper-harvester/internal/summary"
)

func harvestCommand() *cli.Command {
	return &cli.Command{
		Name:  "harvest",
		Usage: "search for papers, save their metadata and optionally download and summarize them",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "keyword",
				Aliases: []string{"k"},
				Usage:   "search keyword, repeatable; prompts when omitted",
			},
			&cli.IntFlag{
				Name:    "max-results",
				Aliases: []string{"n"},
				Usage:   "number of results to request (1-100); prompts when omitted",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "concurrent downloads, overrides download.workers",
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Usage:   "directory for output files, overrides output.dir",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "answer yes to the download and analysis questions",
			},
		},
		Action: harvestAction,
	}
}

func harvestAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	if c.IsSet("workers") {
		e.cfg.Download.Workers = c.Int("workers")
	}
	if c.IsSet("output-dir") {
		e.cfg.Output.Dir = c.String("output-dir")
	}
	defer e.flushMetrics()

	ctx := c.Context
	con := console.New(e.in, e.out)
	con.Banner()
	defer con.Farewell()

	query, err := promptQuery(c, e, con)
	if err != nil {
		return quiet(err)
	}

	archive, closeArchive := e.openArchive(ctx)
	defer closeArchive()

	writer := export.NewWriter(e.files())
	opts := []pipeline.Option{pipeline.WithMetrics(e.metrics)}
	if archive != nil {
		opts = append(opts, pipeline.WithArchive(archive))
	}
	h := pipeline.New(newSource(e), newFetcher(e), writer, pipeline.Config{
		MaxCredentialAttempts: e.cfg.Springer.MaxCredentialAttempts,
		Workers:               e.cfg.Download.Workers,
	}, e.logger, opts...)

	runErr := runHarvest(ctx, e, con, h, writer, query, c.Bool("yes"))

	// The run is recorded even after an interrupt.
	finishErr := h.Finish(context.WithoutCancel(ctx), runErr)
	if finishErr != nil {
		e.logger.Error().Err(finishErr).Msg("failed to finish run")
	}
	if runErr = quiet(runErr); runErr != nil {
		return runErr
	}
	return finishErr
}

// runHarvest drives one run: search, report, optional downloads and the
// optional summary loop.
func runHarvest(ctx context.Context, e *env, con *console.Console, h *pipeline.Harvester, writer *export.Writer, query domain.SearchQuery, assumeYes bool) error {
	outcome, err := h.Search(ctx, query, con)
	if err != nil {
		return err
	}

	files := writer.Files()
	con.ReportFound(outcome.Found, files.Path(files.ArticleList))
	if outcome.Found == 0 {
		return nil
	}

	download, err := confirm(con, assumeYes, "Do you want to proceed with downloading these papers?")
	if err != nil {
		return err
	}
	switch download {
	case console.AnswerYes:
		records, err := h.DownloadAll(ctx)
		if err != nil {
			return err
		}
		con.ReportDownloads(domain.Tally(records))
	case console.AnswerNo:
		con.Printf("\nZero paper was downloaded\n")
	default:
		con.Printf("\nInvalid input! Zero paper was downloaded.\n")
	}

	con.ReportAbstracts(outcome.Abstracts)
	if outcome.Abstracts == 0 {
		return nil
	}
	analyze, err := confirm(con, assumeYes, "Do you want to proceed with analyzing the abstracts?")
	if err != nil || analyze != console.AnswerYes {
		return err
	}

	corpus, err := h.Corpus()
	if err != nil {
		return fmt.Errorf("reading abstracts: %w", err)
	}
	ctrl := summary.NewController(summary.Extractive{}, writer, e.ratios(), e.metrics, e.logger)
	err = con.RunSummary(ctx, ctrl, corpus)
	if text := ctrl.Summary(); text != "" {
		h.RecordSummary(text, ctrl.State().Ratio)
	}
	return err
}

// promptQuery builds the search query from flags, the environment and the
// console, prompting for whatever is missing.
func promptQuery(c *cli.Context, e *env, con *console.Console) (domain.SearchQuery, error) {
	keywords := c.StringSlice("keyword")
	if len(keywords) == 0 {
		var err error
		if keywords, err = con.Keywords(); err != nil {
			return domain.SearchQuery{}, err
		}
	}

	apiKey := e.cfg.Springer.APIKey
	if apiKey == "" {
		var err error
		if apiKey, err = con.APIKey(); err != nil {
			return domain.SearchQuery{}, err
		}
	}

	maxResults := c.Int("max-results")
	if !c.IsSet("max-results") {
		var err error
		if maxResults, err = con.ResultCount(); err != nil {
			return domain.SearchQuery{}, err
		}
	}

	return domain.NewSearchQuery(keywords, maxResults, apiKey)
}

func confirm(con *console.Console, assumeYes bool, question string) (console.Answer, error) {
	if assumeYes {
		return console.AnswerYes, nil
	}
	return con.YesNo(question)
}

func newSource(e *env) *springer.Client {
	return springer.New(springer.Config{
		BaseURL:    e.cfg.Springer.BaseURL,
		Timeout:    e.cfg.Springer.Timeout,
		RateLimit:  e.cfg.Springer.RateLimit,
		MaxRetries: e.cfg.Springer.MaxRetries,
		UserAgent:  e.cfg.Download.UserAgent,
	}, e.logger)
}

func newFetcher(e *env) *pdf.Fetcher {
	dl := e.cfg.Download
	pages := pdf.NewPageLoader(papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:   dl.Timeout,
		RateLimit: dl.RateLimit,
		BurstSize: dl.Workers,
		UserAgent: dl.UserAgent,
		Logger:    e.logger,
	}))
	saver := pdf.NewDownloader(pdf.Config{
		Timeout:               dl.Timeout,
		MaxSize:               dl.MaxSize,
		UserAgent:             dl.UserAgent,
		RequirePDFContentType: dl.RequirePDFContentType,
		AllowPrivateNetworks:  dl.AllowPrivateNetworks,
	})
	return pdf.NewFetcher(e.cfg.Output.Dir, pages, pdf.NewResolver(dl.RelativeHost), saver, e.logger)
}

// quiet turns a user quit or closed input into a clean exit.
func quiet(err error) error {
	if errors.Is(err, console.ErrQuit) || errors.Is(err, console.ErrInputClosed) {
		return nil
	}
	return err
}
