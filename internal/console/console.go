// Package console implements the interactive prompts of the harvester.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/helixir/paper-harvester/internal/domain"
	"github.com/helixir/paper-harvester/internal/papersources"
	"github.com/helixir/paper-harvester/internal/summary"
)

// ErrInputClosed is returned when the input ends before a valid answer.
var ErrInputClosed = errors.New("input closed")

// ErrQuit is returned when the user chooses to quit.
var ErrQuit = errors.New("user quit")

const banner = `
|-------------------------------------------------------|
|This is the tool to collect research papers for you.   |
|The paper search is through Springer Open Access API.  |
|You may go to Springer API website to obtain your key: |
|          https://dev.springernature.com/              |
|-------------------------------------------------------|`

const farewell = `
|-------------------------------------------------------|
|           Thanks for using this program!              |
|-------------------------------------------------------|`

const refineMenu = `
+-----------------------------------------+
| What do you want to do? I want .........|
| s = shorter summary                     |
| l = longer summary                      |
| q = quit                                |
+-----------------------------------------+`

const yesNoPrompt = "Enter Y for Yes, enter N for No: "

// Answer is the reply to a yes/no question.
type Answer int

const (
	// AnswerNo is n, in either case.
	AnswerNo Answer = iota
	// AnswerYes is y, in either case.
	AnswerYes
	// AnswerInvalid is anything other than y or n. Callers treat it as no.
	AnswerInvalid
)

// Console reads answers line by line from in and writes prompts to out.
type Console struct {
	in  *bufio.Scanner
	out io.Writer
}

// New creates a Console.
func New(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewScanner(in), out: out}
}

// Banner prints the welcome message.
func (c *Console) Banner() { c.println(banner) }

// Farewell prints the closing message.
func (c *Console) Farewell() { c.println(farewell) }

// Printf writes a formatted message.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// Keywords asks for "+"-separated keywords until at least one is given and
// echoes each one back with its index.
func (c *Console) Keywords() ([]string, error) {
	for {
		line, err := c.ask("Please enter your search keywords.\nUse \"+\" to separate several keywords: ")
		if err != nil {
			return nil, err
		}
		keywords := papersources.ParseKeywords(line)
		if len(keywords) == 0 {
			continue
		}
		for i, k := range keywords {
			c.Printf("keyword no. %d: %s\n", i+1, k)
		}
		c.Printf("You just entered %d keyword(s)\n", len(keywords))
		return keywords, nil
	}
}

// APIKey asks for an API key until a non-empty one is given.
func (c *Console) APIKey() (string, error) {
	for {
		line, err := c.ask("\nPlease enter your Springer API key: ")
		if err != nil {
			return "", err
		}
		if key := strings.TrimSpace(line); key != "" {
			return key, nil
		}
	}
}

// ResultCount asks for the number of papers until a number in
// [1, domain.MaxResultsLimit] is given.
func (c *Console) ResultCount() (int, error) {
	for {
		line, err := c.ask("\nPlease enter the number of papers you want.\n" +
			"(The search results will be ranked by publication date from newest to oldest): ")
		if err != nil {
			return 0, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		n, convErr := strconv.Atoi(line)
		if convErr != nil || n < 1 || n > domain.MaxResultsLimit {
			c.Printf("Please enter a number between 1 and %d.\n", domain.MaxResultsLimit)
			continue
		}
		return n, nil
	}
}

// YesNo prints question and reads a y/n answer. Case is ignored.
func (c *Console) YesNo(question string) (Answer, error) {
	c.println("\n" + question)
	line, err := c.ask(yesNoPrompt)
	if err != nil {
		return AnswerNo, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y":
		return AnswerYes, nil
	case "n":
		return AnswerNo, nil
	default:
		return AnswerInvalid, nil
	}
}

// RetryCredential asks whether to try again after the API rejected the key.
// It returns ErrQuit when the user declines.
func (c *Console) RetryCredential() error {
	c.println("\n|Looks like your API key is not valid. Try again with a valid API key? (Y) or Quit (Q)|")
	line, err := c.ask("Please enter Y or Q: ")
	if err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y":
		return nil
	case "q":
		return ErrQuit
	default:
		c.println("Your input is invalid.")
		return ErrQuit
	}
}

// NextAPIKey asks whether to retry and, if so, for a new key. It lets the
// console act as a pipeline.CredentialProvider.
func (c *Console) NextAPIKey(_ context.Context, _ int, _ error) (string, error) {
	if err := c.RetryCredential(); err != nil {
		return "", err
	}
	return c.APIKey()
}

// Feedback asks whether the summary is sufficient, re-asking on invalid input.
func (c *Console) Feedback() (summary.Feedback, error) {
	for {
		c.println("\n|Do you feel the summary of the abstracts suffices?|")
		line, err := c.ask(yesNoPrompt)
		if err != nil {
			return summary.Satisfied, err
		}
		f, perr := summary.ParseFeedback(line)
		if perr == nil {
			return f, nil
		}
		c.println("Input is not valid")
	}
}

// RefineCommand shows the refinement menu until s, l or q is entered.
func (c *Console) RefineCommand() (summary.Command, error) {
	for {
		c.println(refineMenu)
		line, err := c.ask("Please enter your answer: ")
		if err != nil {
			return summary.Quit, err
		}
		cmd, perr := summary.ParseCommand(line)
		if perr == nil {
			return cmd, nil
		}
		c.println("Input is not valid")
	}
}

// ShowSummary prints a produced summary.
func (c *Console) ShowSummary(text string) {
	c.println("\n|-----------------------------------------------------|")
	c.println("|Below is a summary extracted from the abstracts.|")
	c.println("\n|Summary|")
	c.println(text)
}

// ReportFound prints how many papers the search returned.
func (c *Console) ReportFound(n int, articleList string) {
	switch n {
	case 0:
		c.println("0 paper was found, please check your keywords and retry!")
		return
	case 1:
		c.println("\n1 paper was found")
	default:
		c.Printf("\n%d papers were found\n", n)
	}
	c.Printf("Papers information is saved in %s\n", articleList)
}

// ReportDownloads prints the download tally.
func (c *Console) ReportDownloads(t domain.DownloadTally) {
	switch t.Downloaded {
	case 0:
		c.println("\nZero paper was downloaded, please check your keywords and retry!")
	case 1:
		c.println("\nOne paper downloaded")
	default:
		c.Printf("\n%d papers downloaded\n", t.Downloaded)
	}
	if t.Skipped > 0 || t.Failed > 0 {
		c.Printf("%d without a PDF link, %d failed\n", t.Skipped, t.Failed)
	}
}

// ReportAbstracts prints how many abstracts were collected.
func (c *Console) ReportAbstracts(n int) {
	c.println("\n+--------------------------------------------------+")
	if n == 1 {
		c.println("1 abstract was found")
		return
	}
	c.Printf("%d abstracts were found\n", n)
}

// RunSummary drives ctrl through one summary session over corpus: the first
// summary, the satisfaction question and at most one refinement.
func (c *Console) RunSummary(ctx context.Context, ctrl *summary.Controller, corpus string) error {
	text, err := ctrl.Start(ctx, corpus)
	if err != nil {
		return err
	}
	c.ShowSummary(text)

	f, err := c.Feedback()
	if err != nil {
		return err
	}
	if err := ctrl.Feedback(f); err != nil {
		return err
	}
	if ctrl.Phase() == summary.PhaseTerminal {
		return nil
	}

	cmd, err := c.RefineCommand()
	if err != nil {
		return err
	}
	text, err = ctrl.Refine(ctx, cmd)
	if err != nil {
		return err
	}
	if cmd != summary.Quit {
		c.ShowSummary(text)
	}
	return nil
}

func (c *Console) ask(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return "", ErrInputClosed
	}
	return c.in.Text(), nil
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}
