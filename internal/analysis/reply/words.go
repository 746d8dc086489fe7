package reply

import (
	"context"
	"strings"
	"time"
)

// StageWords returns the renders of a word-by-word reveal: each step adds one
// word to what was shown before.
func StageWords(final string) []string {
	words := strings.Fields(final)
	if len(words) == 0 {
		return nil
	}

	stages := make([]string, 0, len(words))
	var shown strings.Builder
	for _, word := range words {
		shown.WriteString(word)
		shown.WriteString(" ")
		stages = append(stages, strings.TrimSpace(shown.String()))
	}
	return stages
}

// Reveal calls show once per stage, pausing delay between stages. It stops
// early only when ctx is done.
func Reveal(ctx context.Context, final string, delay time.Duration, show func(stage string)) error {
	stages := StageWords(final)
	for i, stage := range stages {
		if i > 0 && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		show(stage)
	}
	return nil
}

// CountWords counts whitespace separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// EnforceWordCount truncates text to at most n words. The second result
// reports whether text already had exactly n words. The four-word rule is
// only a prompt instruction; callers opt into this check explicitly.
func EnforceWordCount(text string, n int) (string, bool) {
	words := strings.Fields(text)
	conforms := len(words) == n
	if n <= 0 {
		return "", conforms
	}
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " "), conforms
}
