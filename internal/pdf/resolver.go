package pdf

import "strings"

// DefaultRelativeHost completes links that start with "/a".
const DefaultRelativeHost = "https://www.nature.com"

// Rule completes one class of PDF link.
type Rule struct {
	// Name identifies the rule in logs.
	Name string
	// Match reports whether the rule applies to href.
	Match func(href string) bool
	// Complete turns href into an absolute URL. base is the landing page
	// URL after redirects.
	Complete func(base, href string) string
}

// Resolver picks the first PDF link on a landing page and completes it
// with the first matching rule. The zero value is not usable; call
// NewResolver.
type Resolver struct {
	rules []Rule
}

// NewResolver returns the standard rule table. relativeHost is prefixed to
// links starting with "/a"; empty means DefaultRelativeHost.
func NewResolver(relativeHost string) *Resolver {
	if relativeHost == "" {
		relativeHost = DefaultRelativeHost
	}
	relativeHost = strings.TrimSuffix(relativeHost, "/")

	return &Resolver{
		rules: []Rule{
			{
				Name: "absolute",
				Match: func(href string) bool {
					return strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://")
				},
				Complete: func(_, href string) string { return href },
			},
			{
				Name:     "scheme-relative",
				Match:    func(href string) bool { return strings.HasPrefix(href, "//") },
				Complete: func(_, href string) string { return "http:" + href },
			},
			{
				Name:     "publisher-relative",
				Match:    func(href string) bool { return strings.HasPrefix(href, "/a") },
				Complete: func(_, href string) string { return relativeHost + href },
			},
			{
				Name:     "base-relative",
				Match:    func(string) bool { return true },
				Complete: func(base, href string) string { return base + href },
			},
		},
	}
}

// WithRule returns a copy of r with rule tried before the standard ones.
func (r *Resolver) WithRule(rule Rule) *Resolver {
	rules := make([]Rule, 0, len(r.rules)+1)
	rules = append(rules, rule)
	rules = append(rules, r.rules...)
	return &Resolver{rules: rules}
}

// Resolve returns the completed URL of the first href containing ".pdf".
// It reports false when no href qualifies.
func (r *Resolver) Resolve(base string, hrefs []string) (string, bool) {
	href, ok := FirstPDFLink(hrefs)
	if !ok {
		return "", false
	}
	return r.Complete(base, href), true
}

// Complete applies the first matching rule to href.
func (r *Resolver) Complete(base, href string) string {
	for _, rule := range r.rules {
		if rule.Match(href) {
			return rule.Complete(base, href)
		}
	}
	return base + href
}

// FirstPDFLink returns the first href containing ".pdf", in document order.
func FirstPDFLink(hrefs []string) (string, bool) {
	for _, h := range hrefs {
		if strings.Contains(h, ".pdf") {
			return h, true
		}
	}
	return "", false
}
