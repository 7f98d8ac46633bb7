// Package domain provides the domain models and errors for the paper harvester.
package domain

import (
	"strings"
)

// ArticleParams carries the raw fields used to build an Article.
type ArticleParams struct {
	Title           string
	Authors         []string
	Journal         string
	PublicationDate string
	URL             string
	Abstract        string
}

// Article is a normalized bibliographic record. It is immutable once built;
// fields are read through accessors.
type Article struct {
	title           string
	authors         []string
	journal         string
	publicationDate string
	url             string
	abstract        string
}

// NewArticle validates the required fields and builds an Article.
// Title, journal, publication date and URL must be non-empty. The abstract
// may be empty and authors keep their source order.
func NewArticle(p ArticleParams) (Article, error) {
	required := []struct {
		field string
		value string
	}{
		{"title", p.Title},
		{"publicationName", p.Journal},
		{"publicationDate", p.PublicationDate},
		{"url", p.URL},
	}
	for _, r := range required {
		if r.value == "" {
			return Article{}, NewMissingFieldError(r.field)
		}
	}

	authors := make([]string, len(p.Authors))
	copy(authors, p.Authors)

	return Article{
		title:           p.Title,
		authors:         authors,
		journal:         p.Journal,
		publicationDate: p.PublicationDate,
		url:             p.URL,
		abstract:        p.Abstract,
	}, nil
}

// Title returns the article title.
func (a Article) Title() string { return a.title }

// Journal returns the publication name.
func (a Article) Journal() string { return a.journal }

// PublicationDate returns the publication date as reported by the source.
func (a Article) PublicationDate() string { return a.publicationDate }

// URL returns the canonical landing page URL.
func (a Article) URL() string { return a.url }

// Abstract returns the abstract text, possibly empty.
func (a Article) Abstract() string { return a.abstract }

// HasAbstract reports whether the article carries a non-empty abstract.
func (a Article) HasAbstract() bool { return a.abstract != "" }

// Authors returns a copy of the author names in source order.
func (a Article) Authors() []string {
	out := make([]string, len(a.authors))
	copy(out, a.authors)
	return out
}

// AuthorList returns the authors joined with commas.
func (a Article) AuthorList() string {
	return strings.Join(a.authors, ",")
}

// Abstracts returns the non-empty abstracts of articles in order.
func Abstracts(articles []Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		if a.HasAbstract() {
			out = append(out, a.abstract)
		}
	}
	return out
}
