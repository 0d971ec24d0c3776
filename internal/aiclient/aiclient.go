package aiclient

import (
	"context"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/imagecodec"
)

// Generator sends inline images with an instruction to a generative model
// and returns its raw text reply.
type Generator interface {
	Generate(ctx context.Context, images []imagecodec.Image, prompt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, images []imagecodec.Image, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, images []imagecodec.Image, prompt string) (string, error) {
	return f(ctx, images, prompt)
}
