package predict

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Predictor is the external prediction function. The service treats it as
// opaque: it is invoked at most once per worker acceptance and must report
// a result or an error unambiguously. Any error (including a context
// timeout) is treated by the caller as a processing failure.
type Predictor interface {
	Predict(ctx context.Context, input string) (string, error)
}

// WordStats is the built-in stand-in model: a per-word breakdown of letter
// and digit counts, one entry per token, joined with " | ".
type WordStats struct{}

func (WordStats) Predict(ctx context.Context, input string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var parts []string
	for _, raw := range strings.Fields(input) {
		word := strings.TrimFunc(raw, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word == "" {
			continue
		}
		letters, digits := 0, 0
		for _, r := range word {
			switch {
			case unicode.IsLetter(r):
				letters++
			case unicode.IsDigit(r):
				digits++
			}
		}
		if letters == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (letters: %d, digits: %d)", strings.ToLower(word), letters, digits))
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no analyzable tokens in input")
	}
	return strings.Join(parts, " | "), nil
}
