package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// OllamaClient talks to a local Ollama instance. Consolidation wants
// deterministic output, so generation runs unstreamed at temperature zero.
type OllamaClient struct {
	client *api.Client
	model  string
}

// NewOllamaClient creates a client for the given base URL and model. An
// empty base URL falls back to the OLLAMA_HOST environment convention.
func NewOllamaClient(baseURL, model string) (*OllamaClient, error) {
	if model == "" {
		model = "qwen2.5:7b"
	}

	var client *api.Client
	if baseURL == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		client = c
	} else {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama base url %q: %w", baseURL, err)
		}
		client = api.NewClient(u, http.DefaultClient)
	}

	return &OllamaClient{client: client, model: model}, nil
}

func (o *OllamaClient) Name() string {
	return "ollama"
}

// Available checks if Ollama is running and reachable with a short timeout.
func (o *OllamaClient) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := o.client.List(ctx)
	return err == nil
}

// Summarize runs one unstreamed generation. The caller's ctx carries the
// per-invocation timeout; cancellation surfaces as an error.
func (o *OllamaClient) Summarize(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": 0.0,
		},
	}

	var respText string
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		respText = resp.Response
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generation failed: %w", err)
	}
	return respText, nil
}
