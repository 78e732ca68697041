package llms

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kadirpekel/corpus/pkg/config"
	"github.com/kadirpekel/corpus/pkg/ollama"
)

type OllamaProvider struct {
	config *config.LLMConfig
	client *ollama.Client
}

var _ Provider = (*OllamaProvider)(nil)

type OllamaRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type OllamaStreamChunk struct {
	Model           string  `json:"model"`
	CreatedAt       string  `json:"created_at"`
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count"`
	EvalCount       int     `json:"eval_count"`
	Error           string  `json:"error,omitempty"`
}

type OllamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func NewOllamaProviderFromConfig(cfg *config.LLMConfig) (*OllamaProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	return &OllamaProvider{
		config: cfg,
		client: ollama.NewClientWithTimeout(cfg.Host, cfg.Timeout),
	}, nil
}

// ChatStream sends a streaming chat request and forwards text increments
// in arrival order. The channel is closed when the model reports done,
// after a terminal error chunk, or when ctx is cancelled.
func (p *OllamaProvider) ChatStream(ctx context.Context, model string, messages []Message) (<-chan StreamChunk, error) {
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	request := OllamaRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
	}

	outputCh := make(chan StreamChunk, 100)

	go func() {
		defer close(outputCh)

		if err := p.makeStreamingRequest(ctx, request, outputCh); err != nil {
			select {
			case outputCh <- StreamChunk{Type: "error", Error: err}:
			case <-ctx.Done():
			}
		}
	}()

	return outputCh, nil
}

func (p *OllamaProvider) makeStreamingRequest(ctx context.Context, request OllamaRequest, outputCh chan<- StreamChunk) error {
	resp, err := p.client.MakeStreamingRequest(ctx, "/api/chat", request)
	// The retrying client may return both a response and an error for
	// non-2xx status codes; the body often carries the real message.
	if resp != nil {
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			bodyBytes, readErr := io.ReadAll(resp.Body)
			errorBody := string(bodyBytes)
			if readErr != nil {
				errorBody = fmt.Sprintf("(failed to read error body: %v)", readErr)
			}
			var errorJSON struct {
				Error string `json:"error"`
			}
			if json.Unmarshal(bodyBytes, &errorJSON) == nil && errorJSON.Error != "" {
				return fmt.Errorf("Ollama API error: %s", errorJSON.Error)
			}
			return fmt.Errorf("Ollama API request failed with status %d: %s", resp.StatusCode, errorBody)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to make streaming request: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("failed to make streaming request: no response received")
	}

	reader := bufio.NewReader(resp.Body)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read stream: %w", err)
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var chunk OllamaStreamChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}

		if chunk.Error != "" {
			return fmt.Errorf("Ollama API error: %s", chunk.Error)
		}

		// Sends must not block past cancellation: a consumer that stops
		// draining would otherwise pin this goroutine on a full buffer
		// and the response body would never be closed.
		if chunk.Message.Content != "" {
			select {
			case outputCh <- StreamChunk{Type: "text", Text: chunk.Message.Content}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if chunk.Done {
			select {
			case outputCh <- StreamChunk{Type: "done", Tokens: chunk.PromptEvalCount + chunk.EvalCount}:
			case <-ctx.Done():
				return ctx.Err()
			}
			break
		}
	}

	return nil
}

// ListModels returns the model names known to the Ollama runtime.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]string, error) {
	resp, err := p.client.MakeGetRequest(ctx, "/api/tags")
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Ollama API returned status %d: %s", resp.StatusCode, string(body))
	}

	var tags OllamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	models := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, m.Name)
	}
	return models, nil
}

func (p *OllamaProvider) Close() error {
	return nil
}
