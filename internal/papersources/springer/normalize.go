package springer

import (
	"github.com/helixir/paper-harvester/internal/domain"
)

// Normalize converts a raw record into a domain.Article.
// It returns *domain.MissingFieldError when title, publicationName,
// publicationDate or the first url value is absent.
func Normalize(r Record) (domain.Article, error) {
	canonical := ""
	if len(r.URL) > 0 {
		canonical = r.URL[0].Value
	}

	authors := make([]string, 0, len(r.Creators))
	for _, c := range r.Creators {
		authors = append(authors, c.Creator)
	}

	return domain.NewArticle(domain.ArticleParams{
		Title:           r.Title,
		Authors:         authors,
		Journal:         r.PublicationName,
		PublicationDate: r.PublicationDate,
		URL:             canonical,
		Abstract:        r.Abstract.Text(),
	})
}
