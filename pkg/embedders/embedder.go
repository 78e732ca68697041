package embedders

import (
	"context"
	"fmt"

	"github.com/kadirpekel/corpus/pkg/config"
)

// Embedder converts text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	ModelName() string
	Close() error
}

// NewEmbedder creates an embedder from configuration.
func NewEmbedder(cfg *config.EmbedderConfig) (Embedder, error) {
	switch cfg.Type {
	case "ollama":
		return NewOllamaEmbedderFromConfig(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedder type: %s", cfg.Type)
	}
}
