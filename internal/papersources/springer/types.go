package springer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// SearchResponse is the top-level OpenAccess JSON response. Records is a
// pointer so an absent key can be told apart from an empty page; each record
// stays raw so one bad record does not fail the whole page.
type SearchResponse struct {
	APIMessage string             `json:"apiMessage"`
	Query      string             `json:"query"`
	Result     []ResultMeta       `json:"result"`
	Records    *[]json.RawMessage `json:"records"`
}

// ResultMeta carries the paging counters. Springer reports them as strings.
type ResultMeta struct {
	Total            string `json:"total"`
	Start            string `json:"start"`
	PageLength       string `json:"pageLength"`
	RecordsDisplayed string `json:"recordsDisplayed"`
}

// Record is one OpenAccess record.
type Record struct {
	ContentType     string     `json:"contentType"`
	Identifier      string     `json:"identifier"`
	Title           string     `json:"title"`
	Creators        []Creator  `json:"creators"`
	PublicationName string     `json:"publicationName"`
	PublicationDate string     `json:"publicationDate"`
	DOI             string     `json:"doi"`
	Publisher       string     `json:"publisher"`
	URL             []URLEntry `json:"url"`
	Abstract        Abstract   `json:"abstract"`
}

// Creator is one author entry.
type Creator struct {
	Creator string `json:"creator"`
}

// URLEntry is one entry of the url array; the first one is canonical.
type URLEntry struct {
	Format   string `json:"format"`
	Platform string `json:"platform"`
	Value    string `json:"value"`
}

// AbstractKind tags the shape the abstract had on the wire.
type AbstractKind int

const (
	// AbstractEmpty is an empty string, null or an absent key.
	AbstractEmpty AbstractKind = iota
	// AbstractText is an object whose p member is a single string.
	AbstractText
	// AbstractParagraphs is an object whose p member is a list of strings.
	AbstractParagraphs
)

// Abstract is the decoded abstract variant.
type Abstract struct {
	Kind       AbstractKind
	Paragraphs []string
}

// Text flattens the abstract. Paragraphs are joined with a single space.
func (a Abstract) Text() string {
	switch a.Kind {
	case AbstractText, AbstractParagraphs:
		return strings.Join(a.Paragraphs, " ")
	default:
		return ""
	}
}

// UnmarshalJSON accepts "", null, a plain string, {"p": "text"} and
// {"p": ["a", "b"]}. An object without p decodes as empty.
func (a *Abstract) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Abstract{Kind: AbstractEmpty}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding abstract string: %w", err)
		}
		if s == "" {
			*a = Abstract{Kind: AbstractEmpty}
			return nil
		}
		*a = Abstract{Kind: AbstractText, Paragraphs: []string{s}}
		return nil

	case '{':
		var obj struct {
			P json.RawMessage `json:"p"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("decoding abstract object: %w", err)
		}
		return a.decodeParagraphs(obj.P)

	default:
		return fmt.Errorf("unsupported abstract shape %q", truncate(string(data), 40))
	}
}

func (a *Abstract) decodeParagraphs(p json.RawMessage) error {
	p = bytes.TrimSpace(p)
	if len(p) == 0 || bytes.Equal(p, []byte("null")) {
		*a = Abstract{Kind: AbstractEmpty}
		return nil
	}

	if p[0] == '[' {
		var paragraphs []string
		if err := json.Unmarshal(p, &paragraphs); err != nil {
			return fmt.Errorf("decoding abstract paragraphs: %w", err)
		}
		*a = Abstract{Kind: AbstractParagraphs, Paragraphs: paragraphs}
		return nil
	}

	var s string
	if err := json.Unmarshal(p, &s); err != nil {
		return fmt.Errorf("decoding abstract paragraph: %w", err)
	}
	*a = Abstract{Kind: AbstractText, Paragraphs: []string{s}}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
