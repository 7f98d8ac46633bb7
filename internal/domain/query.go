package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxResultsLimit is the largest page size the search API accepts.
const MaxResultsLimit = 100

var validate = validator.New(validator.WithRequiredStructEnabled())

// SearchQuery is one search request. It is rebuilt with a new key on every
// credential retry.
type SearchQuery struct {
	Keywords   []string `validate:"required,min=1,dive,required"`
	MaxResults int      `validate:"min=1,max=100"`
	APIKey     string   `validate:"required"`
}

// NewSearchQuery trims the keywords and validates the query.
func NewSearchQuery(keywords []string, maxResults int, apiKey string) (SearchQuery, error) {
	trimmed := make([]string, 0, len(keywords))
	for _, k := range keywords {
		trimmed = append(trimmed, strings.TrimSpace(k))
	}

	q := SearchQuery{
		Keywords:   trimmed,
		MaxResults: maxResults,
		APIKey:     strings.TrimSpace(apiKey),
	}
	if err := q.Validate(); err != nil {
		return SearchQuery{}, err
	}
	return q, nil
}

// Validate checks the query against its struct constraints.
func (q SearchQuery) Validate() error {
	err := validate.Struct(q)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return NewValidationError(fe.Field(), describeTag(fe))
	}
	return fmt.Errorf("validate search query: %w", err)
}

// WithAPIKey returns a copy of the query carrying a different API key.
func (q SearchQuery) WithAPIKey(key string) SearchQuery {
	keywords := make([]string, len(q.Keywords))
	copy(keywords, q.Keywords)
	return SearchQuery{
		Keywords:   keywords,
		MaxResults: q.MaxResults,
		APIKey:     strings.TrimSpace(key),
	}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}
