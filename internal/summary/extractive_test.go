package summary

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"simple", "One. Two! Three?", []string{"One.", "Two!", "Three?"}},
		{"decimal stays inside sentence", "Dose was 2.5 mg. Done.", []string{"Dose was 2.5 mg.", "Done."}},
		{"trailing fragment", "First. no period", []string{"First.", "no period"}},
		{"newlines", "A.\nB.", []string{"A.", "B."}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.text))
		})
	}
}

func TestExtractive_Summarize(t *testing.T) {
	ctx := context.Background()
	text := "Tumour cells grow fast. Tumour cells divide. Weather was mild. Tumour growth slows with therapy. Lunch was served."

	t.Run("keeps ratio of sentences in original order", func(t *testing.T) {
		out, err := Extractive{}.Summarize(ctx, text, 0.4)
		require.NoError(t, err)

		lines := strings.Split(out, "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, "Tumour cells grow fast.", lines[0])
		assert.Equal(t, "Tumour cells divide.", lines[1])
	})

	t.Run("keeps at least one sentence", func(t *testing.T) {
		out, err := Extractive{}.Summarize(ctx, text, 0.05)
		require.NoError(t, err)
		assert.Equal(t, 1, len(strings.Split(out, "\n")))
	})

	t.Run("ratio one keeps everything", func(t *testing.T) {
		out, err := Extractive{}.Summarize(ctx, text, 1)
		require.NoError(t, err)
		assert.Len(t, strings.Split(out, "\n"), 5)
	})

	t.Run("rejects out of range ratio", func(t *testing.T) {
		_, err := Extractive{}.Summarize(ctx, text, 0)
		assert.Error(t, err)
		_, err = Extractive{}.Summarize(ctx, text, 1.1)
		assert.Error(t, err)
	})

	t.Run("honors cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Extractive{}.Summarize(cctx, text, 0.2)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRemoveStopWords(t *testing.T) {
	assert.Equal(t, "cells grow dish.", RemoveStopWords("The cells grow in the dish."))
	assert.Equal(t, "Cells", RemoveStopWords("  THE Cells\n\tand  "))
	assert.Equal(t, "", RemoveStopWords("the of and"))
	assert.True(t, IsStopWord("The"))
	assert.False(t, IsStopWord("tumour"))
}
