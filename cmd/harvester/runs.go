package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/helixir/paper-harvester/internal/domain"
	"github.com/helixir/paper-harvester/internal/repository"
)

func runsCommand() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "inspect runs archived in PostgreSQL",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list runs, newest first",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "status", Usage: "running, completed or failed; repeatable"},
					&cli.StringFlag{Name: "keyword", Usage: "only runs searched with this keyword"},
					&cli.DurationFlag{Name: "since", Usage: "only runs started within this duration"},
					&cli.IntFlag{Name: "limit", Value: 20},
					&cli.IntFlag{Name: "offset"},
				},
				Action: runsListAction,
			},
			{
				Name:      "show",
				Usage:     "print one run and its articles as YAML",
				ArgsUsage: "<run-id>",
				Action:    runsShowAction,
			},
			{
				Name:   "health",
				Usage:  "print database connection pool health",
				Action: runsHealthAction,
			},
		},
	}
}

func runsListAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	db, err := e.openDatabase(c.Context)
	if err != nil {
		return err
	}
	defer db.Close()

	filter := repository.RunFilter{
		Keyword: c.String("keyword"),
		Limit:   c.Int("limit"),
		Offset:  c.Int("offset"),
	}
	for _, s := range c.StringSlice("status") {
		status, err := parseRunStatus(s)
		if err != nil {
			return err
		}
		filter.Status = append(filter.Status, status)
	}
	if since := c.Duration("since"); since > 0 {
		after := time.Now().Add(-since)
		filter.StartedAfter = &after
	}

	runs, total, err := repository.NewPgRunRepository(db).List(c.Context, filter)
	if err != nil {
		return err
	}
	return writeRunTable(e.out, runs, total)
}

func runsShowAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one run id, got %d arguments", c.NArg())
	}
	id, err := uuid.Parse(c.Args().First())
	if err != nil {
		return domain.NewValidationError("run_id", "must be a UUID")
	}

	e, err := newEnv(c)
	if err != nil {
		return err
	}
	db, err := e.openDatabase(c.Context)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repository.NewPgRunRepository(db)
	run, err := repo.Get(c.Context, id)
	if err != nil {
		return err
	}
	articles, err := repo.Articles(c.Context, id)
	if err != nil {
		return err
	}
	return encodeYAML(e.out, newRunView(run, articles))
}

func runsHealthAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	db, err := e.openDatabase(c.Context)
	if err != nil {
		return err
	}
	defer db.Close()

	health := db.Health(c.Context)
	if err := encodeYAML(e.out, health); err != nil {
		return err
	}
	if !health.Healthy() {
		return fmt.Errorf("database unhealthy: %s", health.Error)
	}
	return nil
}

func parseRunStatus(s string) (repository.RunStatus, error) {
	switch status := repository.RunStatus(strings.ToLower(strings.TrimSpace(s))); status {
	case repository.RunStatusRunning, repository.RunStatusCompleted, repository.RunStatusFailed:
		return status, nil
	default:
		return "", domain.NewValidationError("status", fmt.Sprintf("unknown run status %q", s))
	}
}

func writeRunTable(out io.Writer, runs []*repository.Run, total int64) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tKEYWORDS\tFOUND\tDOWNLOADED\tSKIPPED\tFAILED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status, strings.Join(r.Keywords, "+"),
			r.Counts.Found, r.Counts.Downloaded, r.Counts.Skipped, r.Counts.Failed)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d of %d runs\n", len(runs), total)
	return err
}

// runView is the YAML shape of runs show.
type runView struct {
	ID           string        `yaml:"id"`
	Status       string        `yaml:"status"`
	Query        string        `yaml:"query"`
	Keywords     []string      `yaml:"keywords"`
	MaxResults   int           `yaml:"max_results"`
	StartedAt    time.Time     `yaml:"started_at"`
	FinishedAt   *time.Time    `yaml:"finished_at,omitempty"`
	Found        int           `yaml:"found"`
	Malformed    int           `yaml:"malformed"`
	Abstracts    int           `yaml:"abstracts"`
	Downloaded   int           `yaml:"downloaded"`
	Skipped      int           `yaml:"skipped"`
	Failed       int           `yaml:"failed"`
	Error        string        `yaml:"error,omitempty"`
	Summary      string        `yaml:"summary,omitempty"`
	SummaryRatio float64       `yaml:"summary_ratio,omitempty"`
	Articles     []articleView `yaml:"articles"`
}

type articleView struct {
	Title   string   `yaml:"title"`
	Authors []string `yaml:"authors"`
	Journal string   `yaml:"journal"`
	Date    string   `yaml:"date"`
	URL     string   `yaml:"url"`
}

func newRunView(r *repository.Run, articles []domain.Article) runView {
	v := runView{
		ID:           r.ID.String(),
		Status:       string(r.Status),
		Query:        r.Query,
		Keywords:     r.Keywords,
		MaxResults:   r.MaxResults,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		Found:        r.Counts.Found,
		Malformed:    r.Counts.Malformed,
		Abstracts:    r.Counts.Abstracts,
		Downloaded:   r.Counts.Downloaded,
		Skipped:      r.Counts.Skipped,
		Failed:       r.Counts.Failed,
		Error:        r.ErrorMessage,
		Summary:      r.Summary,
		SummaryRatio: r.SummaryRatio,
		Articles:     make([]articleView, 0, len(articles)),
	}
	for _, a := range articles {
		v.Articles = append(v.Articles, articleView{
			Title:   a.Title(),
			Authors: a.Authors(),
			Journal: a.Journal(),
			Date:    a.PublicationDate(),
			URL:     a.URL(),
		})
	}
	return v
}

func encodeYAML(out io.Writer, v any) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return enc.Close()
}
