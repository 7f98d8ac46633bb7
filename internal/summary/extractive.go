package summary

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// Summarizer condenses text, keeping roughly ratio of it.
type Summarizer interface {
	Summarize(ctx context.Context, text string, ratio float64) (string, error)
}

// SummarizerFunc adapts a function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, text string, ratio float64) (string, error)

// Summarize calls f.
func (f SummarizerFunc) Summarize(ctx context.Context, text string, ratio float64) (string, error) {
	return f(ctx, text, ratio)
}

// Extractive is a frequency-based sentence extractor. Each sentence is scored
// by the average corpus frequency of its words; the best round(ratio*n)
// sentences, at least one, are returned in their original order, one per line.
type Extractive struct{}

var _ Summarizer = Extractive{}

// Summarize implements Summarizer.
func (Extractive) Summarize(ctx context.Context, text string, ratio float64) (string, error) {
	if ratio <= 0 || ratio > 1 {
		return "", fmt.Errorf("ratio must be in (0, 1], got %v", ratio)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return "", nil
	}

	freq := make(map[string]int)
	tokenized := make([][]string, len(sentences))
	for i, s := range sentences {
		tokenized[i] = words(s)
		for _, w := range tokenized[i] {
			freq[w]++
		}
	}

	type scored struct {
		index int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i, ws := range tokenized {
		var total int
		for _, w := range ws {
			total += freq[w]
		}
		s := 0.0
		if len(ws) > 0 {
			s = float64(total) / float64(len(ws))
		}
		scores[i] = scored{index: i, score: s}
	}

	keep := int(math.Round(ratio * float64(len(sentences))))
	if keep < 1 {
		keep = 1
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	chosen := scores[:keep]
	sort.Slice(chosen, func(i, j int) bool { return chosen[i].index < chosen[j].index })

	out := make([]string, len(chosen))
	for i, c := range chosen {
		out[i] = sentences[c.index]
	}
	return strings.Join(out, "\n"), nil
}

// SplitSentences splits text after '.', '!' or '?' when followed by
// whitespace or the end of the text. Empty sentences are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func words(sentence string) []string {
	fields := strings.FieldsFunc(strings.ToLower(sentence), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if !IsStopWord(f) {
			out = append(out, f)
		}
	}
	return out
}
