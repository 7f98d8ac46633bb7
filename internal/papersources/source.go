// Package papersources provides clients for searching bibliographic APIs.
//
// Each API implements ArticleSource, returning records already normalized into
// domain.Article values. Records that cannot be normalized are reported back
// in SearchResult.Skipped so the caller can log them without aborting the batch.
//
// Example usage:
//
//	source := springer.New(cfg)
//	query, _ := domain.NewSearchQuery([]string{"CRISPR", "gene editing"}, 20, apiKey)
//	result, err := source.Search(ctx, query)
package papersources

import (
	"context"
	"time"

	"github.com/helixir/paper-harvester/internal/domain"
)

// ArticleSource searches one bibliographic API.
type ArticleSource interface {
	// Name returns the human-readable source name.
	Name() string

	// Search runs the query and returns normalized articles in API order.
	// A *domain.InvalidCredentialError means the caller may retry with a
	// different API key.
	Search(ctx context.Context, query domain.SearchQuery) (*SearchResult, error)
}

// SkippedRecord is a record that failed normalization.
type SkippedRecord struct {
	// Index is the position of the record in the API response.
	Index int

	// Err explains why the record was skipped.
	Err error
}

// SearchResult contains the results of one search call.
type SearchResult struct {
	// Articles holds the normalized articles in API order.
	Articles []domain.Article

	// Skipped lists the records that could not be normalized.
	Skipped []SkippedRecord

	// TotalResults is the API's count of matching records, if reported.
	TotalResults int

	// Query is the rendered query string sent to the API.
	Query string

	// SearchDuration is how long the request took.
	SearchDuration time.Duration
}

// Found returns the number of records the API returned, including skipped ones.
func (r *SearchResult) Found() int {
	return len(r.Articles) + len(r.Skipped)
}
