package llm

import (
	"context"
	"fmt"
	"unicode/utf8"
)

const mockPreviewChars = 200

// Mock echoes prompt statistics instead of calling a model.
// Its output is deterministic for a given model and prompt.
type Mock struct{}

func (Mock) Generate(ctx context.Context, model, prompt, system string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return fmt.Sprintf(
		"[MOCK MODEL OUTPUT]\nmodel=%s\nprompt_chars=%d\nprompt_preview=%s\n",
		model,
		utf8.RuneCountInString(prompt),
		preview(prompt, mockPreviewChars),
	), nil
}

func preview(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
