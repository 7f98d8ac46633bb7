package papersources

import (
	"net/url"
	"strings"
)

var sensitiveParams = map[string]struct{}{
	"api_key": {},
	"apikey":  {},
	"key":     {},
	"token":   {},
}

// RedactURL returns u as a string with credential query values replaced.
// The remaining query is kept byte for byte so pre-encoded parameters stay
// readable in logs.
func RedactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	if u.RawQuery == "" {
		return u.String()
	}

	pairs := strings.Split(u.RawQuery, "&")
	for i, p := range pairs {
		name, _, found := strings.Cut(p, "=")
		if !found {
			continue
		}
		if _, ok := sensitiveParams[strings.ToLower(name)]; ok {
			pairs[i] = name + "=REDACTED"
		}
	}

	clone := *u
	clone.RawQuery = strings.Join(pairs, "&")
	return clone.String()
}
