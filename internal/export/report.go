package export

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/helixir/paper-harvester/internal/domain"
)

// Report summarizes one harvest run.
type Report struct {
	RunID       string                  `yaml:"run_id"`
	StartedAt   time.Time               `yaml:"started_at"`
	FinishedAt  time.Time               `yaml:"finished_at"`
	Query       string                  `yaml:"query"`
	Keywords    []string                `yaml:"keywords"`
	MaxResults  int                     `yaml:"max_results"`
	Found       int                     `yaml:"found"`
	Malformed   int                     `yaml:"malformed"`
	Abstracts   int                     `yaml:"abstracts"`
	Downloaded  int                     `yaml:"downloaded"`
	Skipped     int                     `yaml:"skipped"`
	Failed      int                     `yaml:"failed"`
	Downloads   []domain.DownloadRecord `yaml:"downloads,omitempty"`
	Summary      string                  `yaml:"summary,omitempty"`
	SummaryRatio float64                `yaml:"summary_ratio,omitempty"`
}

// EncodeReport writes r as YAML.
func EncodeReport(out io.Writer, r Report) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return enc.Close()
}

// DecodeReport reads a YAML report.
func DecodeReport(in io.Reader) (Report, error) {
	var r Report
	if err := yaml.NewDecoder(in).Decode(&r); err != nil {
		return Report{}, fmt.Errorf("decoding report: %w", err)
	}
	return r, nil
}

// WriteReport writes the report file. It is a no-op when no report file is configured.
func (w *Writer) WriteReport(r Report) error {
	if w.files.Report == "" {
		return nil
	}
	return writeFile(w.files.Path(w.files.Report), func(out io.Writer) error {
		return EncodeReport(out, r)
	})
}
