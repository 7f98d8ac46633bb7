// Package summary produces extractive summaries of collected abstracts and
// drives the feedback loop that lets a user ask for a shorter or longer one.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-harvester/internal/domain"
	"github.com/helixir/paper-harvester/internal/observability"
)

// Default compression ratios.
const (
	DefaultRatio = 0.20
	ShorterRatio = 0.05
	LongerRatio  = 0.50
)

var (
	// ErrInvalidCommand is returned for refinement input other than s, l or q.
	ErrInvalidCommand = errors.New("invalid refinement command")

	// ErrInvalidFeedback is returned for feedback input other than y or n.
	ErrInvalidFeedback = errors.New("invalid feedback")

	// ErrInvalidTransition is returned when an operation is not allowed in the current phase.
	ErrInvalidTransition = errors.New("invalid summary transition")
)

// Phase is a state of the summary loop.
type Phase int

const (
	// PhaseInitial is before the first summary exists.
	PhaseInitial Phase = iota
	// PhaseAwaitFeedback waits for a satisfaction signal.
	PhaseAwaitFeedback
	// PhaseAwaitRefinement waits for a shorter, longer or quit command.
	PhaseAwaitRefinement
	// PhaseTerminal accepts no further transitions.
	PhaseTerminal
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseInitial:
		return "initial"
	case PhaseAwaitFeedback:
		return "await_feedback"
	case PhaseAwaitRefinement:
		return "await_refinement"
	case PhaseTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Feedback is the user's verdict on a summary.
type Feedback int

const (
	// Satisfied ends the loop.
	Satisfied Feedback = iota + 1
	// Unsatisfied asks for a refinement.
	Unsatisfied
)

// ParseFeedback accepts "y" or "n", ignoring case and surrounding space.
func ParseFeedback(input string) (Feedback, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y":
		return Satisfied, nil
	case "n":
		return Unsatisfied, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidFeedback, input)
	}
}

// Command is a refinement request.
type Command string

const (
	// Shorter re-summarizes with the shorter ratio.
	Shorter Command = "s"
	// Longer re-summarizes with the longer ratio.
	Longer Command = "l"
	// Quit keeps the current summary.
	Quit Command = "q"
)

// ParseCommand accepts "s", "l" or "q", ignoring case and surrounding space.
func ParseCommand(input string) (Command, error) {
	c := Command(strings.ToLower(strings.TrimSpace(input)))
	switch c {
	case Shorter, Longer, Quit:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCommand, input)
	}
}

// Writer persists a produced summary, replacing the previous one.
type Writer interface {
	WriteSummary(text string) error
}

// State is the mutable part of the loop.
type State struct {
	// Ratio is the compression ratio of the current summary.
	Ratio float64
	// Terminal is set once no further transitions are allowed.
	Terminal bool
	// Rounds counts refinements that produced a new summary.
	Rounds int
}

// Ratios configures the compression ratios of the loop.
type Ratios struct {
	Default float64
	Shorter float64
	Longer  float64
}

// DefaultRatios returns 0.20, 0.05 and 0.50.
func DefaultRatios() Ratios {
	return Ratios{Default: DefaultRatio, Shorter: ShorterRatio, Longer: LongerRatio}
}

// Controller runs the summary loop:
//
//	Initial -> AwaitFeedback -> Terminal
//	                         -> AwaitRefinement -> Terminal
//
// Only one refinement is offered. A Controller is not safe for concurrent use.
type Controller struct {
	summarizer Summarizer
	writer     Writer
	ratios     Ratios
	metrics    *observability.Metrics
	logger     zerolog.Logger

	phase   Phase
	state   State
	corpus  string
	summary string
}

// NewController creates a Controller. The metrics parameter may be nil.
// Zero ratios fall back to the defaults.
func NewController(summarizer Summarizer, writer Writer, ratios Ratios, metrics *observability.Metrics, logger zerolog.Logger) *Controller {
	def := DefaultRatios()
	if ratios.Default == 0 {
		ratios.Default = def.Default
	}
	if ratios.Shorter == 0 {
		ratios.Shorter = def.Shorter
	}
	if ratios.Longer == 0 {
		ratios.Longer = def.Longer
	}
	return &Controller{
		summarizer: summarizer,
		writer:     writer,
		ratios:     ratios,
		metrics:    metrics,
		logger:     logger.With().Str("component", "summary").Logger(),
		phase:      PhaseInitial,
		state:      State{Ratio: ratios.Default},
	}
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase { return c.phase }

// State returns a copy of the loop state.
func (c *Controller) State() State { return c.state }

// Summary returns the latest persisted summary.
func (c *Controller) Summary() string { return c.summary }

// Start strips stop words from corpus and produces the first summary at the
// default ratio. An empty corpus fails with *domain.EmptyInputError without
// calling the summarizer, and the controller stays in PhaseInitial.
func (c *Controller) Start(ctx context.Context, corpus string) (string, error) {
	if c.phase != PhaseInitial {
		return "", fmt.Errorf("%w: start in phase %s", ErrInvalidTransition, c.phase)
	}
	if strings.TrimSpace(corpus) == "" {
		return "", domain.NewEmptyInputError("no abstracts collected")
	}

	cleaned := RemoveStopWords(corpus)
	if cleaned == "" {
		return "", domain.NewEmptyInputError("corpus contains only stop words")
	}

	c.corpus = cleaned
	out, err := c.produce(ctx, c.ratios.Default)
	if err != nil {
		return "", err
	}
	c.phase = PhaseAwaitFeedback
	return out, nil
}

// Feedback records the user's verdict. Satisfied ends the loop without
// another summarizer call; Unsatisfied moves to PhaseAwaitRefinement.
func (c *Controller) Feedback(f Feedback) error {
	if c.phase != PhaseAwaitFeedback {
		return fmt.Errorf("%w: feedback in phase %s", ErrInvalidTransition, c.phase)
	}
	switch f {
	case Satisfied:
		c.terminate()
	case Unsatisfied:
		c.phase = PhaseAwaitRefinement
	default:
		return fmt.Errorf("%w: %d", ErrInvalidFeedback, int(f))
	}
	return nil
}

// Refine applies one refinement command. Shorter and Longer re-summarize at
// their ratio and persist the result; Quit keeps the current summary. All
// three end the loop. An unknown command returns ErrInvalidCommand and leaves
// the phase unchanged so the caller can ask again.
func (c *Controller) Refine(ctx context.Context, cmd Command) (string, error) {
	if c.phase != PhaseAwaitRefinement {
		return "", fmt.Errorf("%w: refine in phase %s", ErrInvalidTransition, c.phase)
	}

	var ratio float64
	switch cmd {
	case Shorter:
		ratio = c.ratios.Shorter
	case Longer:
		ratio = c.ratios.Longer
	case Quit:
		c.terminate()
		return c.summary, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCommand, string(cmd))
	}

	out, err := c.produce(ctx, ratio)
	if err != nil {
		return "", err
	}
	c.state.Rounds++
	c.terminate()
	return out, nil
}

func (c *Controller) terminate() {
	c.phase = PhaseTerminal
	c.state.Terminal = true
}

func (c *Controller) produce(ctx context.Context, ratio float64) (string, error) {
	out, err := c.summarizer.Summarize(ctx, c.corpus, ratio)
	if err != nil {
		return "", fmt.Errorf("summarizing at ratio %.2f: %w", ratio, err)
	}
	if err := c.writer.WriteSummary(out); err != nil {
		return "", fmt.Errorf("writing summary: %w", err)
	}

	c.state.Ratio = ratio
	c.summary = out
	if c.metrics != nil {
		c.metrics.RecordSummary(ratio)
	}
	c.logger.Info().Float64("ratio", ratio).Int("length", len(out)).Msg("summary produced")
	return out, nil
}
