package embed

import "context"

// Provider produces a dense vector for a piece of text. Dimensions must
// match the vector column width of the policy store (768).
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Close() error
}
