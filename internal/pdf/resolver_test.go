package pdf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolver_Resolve(t *testing.T) {
	const base = "https://link.springer.com/article/10.1007/s001"

	tests := []struct {
		name     string
		hrefs    []string
		expected string
		found    bool
	}{
		{
			name:     "absolute https kept verbatim",
			hrefs:    []string{"https://cdn.example.com/paper.pdf"},
			expected: "https://cdn.example.com/paper.pdf",
			found:    true,
		},
		{
			name:     "absolute http kept verbatim",
			hrefs:    []string{"http://cdn.example.com/paper.pdf"},
			expected: "http://cdn.example.com/paper.pdf",
			found:    true,
		},
		{
			name:     "scheme-relative gets http",
			hrefs:    []string{"//x.com/y.pdf"},
			expected: "http://x.com/y.pdf",
			found:    true,
		},
		{
			name:     "publisher-relative gets nature host",
			hrefs:    []string{"/articles/s41586.pdf"},
			expected: "https://www.nature.com/articles/s41586.pdf",
			found:    true,
		},
		{
			name:     "other links are concatenated to the base",
			hrefs:    []string{"/content/pdf/10.1007/s001.pdf"},
			expected: base + "/content/pdf/10.1007/s001.pdf",
			found:    true,
		},
		{
			name:     "first pdf link wins",
			hrefs:    []string{"/about", "//first.com/a.pdf", "https://second.com/b.pdf"},
			expected: "http://first.com/a.pdf",
			found:    true,
		},
		{
			name:     ".pdf anywhere in the href counts",
			hrefs:    []string{"https://x.com/download.pdf?token=1"},
			expected: "https://x.com/download.pdf?token=1",
			found:    true,
		},
		{
			name:  "no pdf link",
			hrefs: []string{"/about", "https://x.com/index.html"},
			found: false,
		},
		{
			name:  "no links at all",
			hrefs: nil,
			found: false,
		},
	}

	r := NewResolver("")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(base, tt.hrefs)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestResolver_WithRule(t *testing.T) {
	r := NewResolver("https://www.nature.com/").WithRule(Rule{
		Name:     "springer-content",
		Match:    func(href string) bool { return strings.HasPrefix(href, "/content/") },
		Complete: func(_, href string) string { return "https://link.springer.com" + href },
	})

	got, ok := r.Resolve("https://ignored", []string{"/content/pdf/x.pdf"})
	assert.True(t, ok)
	assert.Equal(t, "https://link.springer.com/content/pdf/x.pdf", got)

	got, ok = r.Resolve("https://ignored", []string{"/articles/y.pdf"})
	assert.True(t, ok)
	assert.Equal(t, "https://www.nature.com/articles/y.pdf", got)
}
