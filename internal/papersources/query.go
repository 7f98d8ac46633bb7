package papersources

import (
	"net/url"
	"strings"
)

const (
	quote          = "%22"
	andOperator    = quote + "AND" + quote
	journalFilter  = "type:Journal)"
	keywordDivider = "+"
)

// BuildQuery renders keywords into the OpenAccess boolean query string
// (%22kw1%22AND%22kw2%22type:Journal), ready to be used as the q parameter
// without further escaping. Spaces inside a keyword become %20.
func BuildQuery(keywords []string) string {
	var sb strings.Builder
	sb.WriteString("(")
	sb.WriteString(quote)
	for _, k := range keywords {
		sb.WriteString(EscapeKeyword(k))
		sb.WriteString(andOperator)
	}
	q := strings.TrimSuffix(sb.String(), "AND"+quote)
	return q + journalFilter
}

// EscapeKeyword percent-encodes a keyword for the q parameter.
func EscapeKeyword(k string) string {
	return strings.ReplaceAll(url.QueryEscape(k), "+", "%20")
}

// ParseKeywords splits "+"-separated keyword input, trimming whitespace and
// dropping empty tokens.
func ParseKeywords(input string) []string {
	parts := strings.Split(input, keywordDivider)
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}
