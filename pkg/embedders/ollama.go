package embedders

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/kadirpekel/corpus/pkg/config"
	"github.com/kadirpekel/corpus/pkg/ollama"
)

// Global mutex to serialize Ollama embedding requests
// Ollama's llama runner crashes when receiving concurrent embedding requests
var ollamaEmbedMu sync.Mutex

type OllamaEmbedder struct {
	config *config.EmbedderConfig
	client *ollama.Client
}

var _ Embedder = (*OllamaEmbedder)(nil)

type OllamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type OllamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func NewOllamaEmbedderFromConfig(cfg *config.EmbedderConfig) (*OllamaEmbedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedder model is required")
	}
	return &OllamaEmbedder{
		config: cfg,
		client: ollama.NewClientWithTimeout(cfg.Host, cfg.Timeout),
	}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	// Serialize all Ollama embedding requests to prevent crashes
	// Ollama's llama runner aborts when receiving concurrent embedding requests
	ollamaEmbedMu.Lock()
	defer ollamaEmbedMu.Unlock()

	textLen := len(text)
	slog.Debug("Ollama embedding request", "model", e.config.Model, "text_length", textLen)

	request := OllamaEmbedRequest{
		Model:  e.config.Model,
		Prompt: text,
	}

	var resp *http.Response
	var err error
	for attempt := 0; attempt < e.config.MaxRetries; attempt++ {
		resp, err = e.client.MakeRequest(ctx, "/api/embeddings", request)
		if err == nil {
			break
		}

		slog.Debug("Ollama embedding retry", "attempt", attempt+1, "error", err, "text_length", textLen)
		if attempt < e.config.MaxRetries-1 {
			time.Sleep(time.Duration(attempt+1) * time.Second)
		}
	}

	if err != nil {
		slog.Error("Ollama embedding failed", "error", err, "text_length", textLen, "model", e.config.Model)
		return nil, fmt.Errorf("failed to send request to Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response OllamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(response.Embedding) == 0 {
		return nil, fmt.Errorf("received empty embedding from Ollama")
	}

	return response.Embedding, nil
}

func (e *OllamaEmbedder) Dimension() int {
	return e.config.Dimension
}

func (e *OllamaEmbedder) ModelName() string {
	return e.config.Model
}

func (e *OllamaEmbedder) Close() error {
	return nil
}
