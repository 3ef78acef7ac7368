package ai

import "context"

// TextGenerator generates free-form text from a single prompt.
// Callers own retry policy; none is applied at this layer.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}
