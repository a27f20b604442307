package embedding

import "context"

// Provider is the remote embedding model. Implementations return one vector per input text, in order.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
