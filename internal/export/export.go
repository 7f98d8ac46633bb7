// Package export writes harvest results to disk: the article CSV, the
// abstract list, the summary text and the YAML run report.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/helixir/paper-harvester/internal/domain"
)

// ArticleListHeader is the header row of the article CSV.
var ArticleListHeader = []string{"title", "authors", "journal", "date", "url"}

// ErrBadHeader is returned when an article CSV does not start with ArticleListHeader.
var ErrBadHeader = errors.New("unexpected article list header")

// Files names the output files, all relative to Dir.
type Files struct {
	Dir          string
	ArticleList  string
	AbstractList string
	Summary      string
	Report       string
}

// Path joins name onto Dir.
func (f Files) Path(name string) string {
	return filepath.Join(f.Dir, name)
}

// Writer persists results into the files named by Files.
type Writer struct {
	files Files
}

// NewWriter creates a Writer.
func NewWriter(files Files) *Writer {
	if files.Dir == "" {
		files.Dir = "."
	}
	return &Writer{files: files}
}

// Files returns the configured output files.
func (w *Writer) Files() Files { return w.files }

// WriteArticles writes the article CSV and the abstract list. It returns the
// number of articles and the number of non-empty abstracts written.
func (w *Writer) WriteArticles(articles []domain.Article) (int, int, error) {
	if err := os.MkdirAll(w.files.Dir, 0o755); err != nil {
		return 0, 0, fmt.Errorf("creating output directory: %w", err)
	}

	if err := writeFile(w.files.Path(w.files.ArticleList), func(out io.Writer) error {
		return WriteArticleCSV(out, articles)
	}); err != nil {
		return 0, 0, err
	}

	abstracts := domain.Abstracts(articles)
	if err := writeFile(w.files.Path(w.files.AbstractList), func(out io.Writer) error {
		_, err := io.WriteString(out, strings.Join(abstracts, "\n"))
		return err
	}); err != nil {
		return 0, 0, err
	}

	return len(articles), len(abstracts), nil
}

// WriteSummary replaces the summary file with text.
func (w *Writer) WriteSummary(text string) error {
	return writeFile(w.files.Path(w.files.Summary), func(out io.Writer) error {
		_, err := io.WriteString(out, text)
		return err
	})
}

// ReadAbstracts returns the content of the abstract list.
func (w *Writer) ReadAbstracts() (string, error) {
	data, err := os.ReadFile(w.files.Path(w.files.AbstractList))
	if err != nil {
		return "", fmt.Errorf("reading abstract list: %w", err)
	}
	return string(data), nil
}

// WriteArticleCSV writes the header and one row per article. Authors are
// joined with commas; fields are quoted as needed so the file reads back intact.
func WriteArticleCSV(out io.Writer, articles []domain.Article) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(ArticleListHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, a := range articles {
		row := []string{a.Title(), a.AuthorList(), a.Journal(), a.PublicationDate(), a.URL()}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row for %q: %w", a.Title(), err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ArticleRow is one row of the article CSV.
type ArticleRow struct {
	Title   string
	Authors string
	Journal string
	Date    string
	URL     string
}

// ReadArticleCSV parses an article CSV written by WriteArticleCSV.
func ReadArticleCSV(in io.Reader) ([]ArticleRow, error) {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = len(ArticleListHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if strings.Join(header, ",") != strings.Join(ArticleListHeader, ",") {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, header)
	}

	var rows []ArticleRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		rows = append(rows, ArticleRow{
			Title:   rec[0],
			Authors: rec[1],
			Journal: rec[2],
			Date:    rec[3],
			URL:     rec[4],
		})
	}
}

// writeFile writes through a temporary file in the target directory and
// renames it into place, replacing any existing file.
func writeFile(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting mode of %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	committed = true
	return nil
}
