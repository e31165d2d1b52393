package ports

import "context"

type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}
