package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// ollamaClient is the subset of the Ollama API client we call.
type ollamaClient interface {
	Chat(ctx context.Context, req *ollama.ChatRequest, fn ollama.ChatResponseFunc) error
	Embed(ctx context.Context, req *ollama.EmbedRequest) (*ollama.EmbedResponse, error)
}

func newOllamaClient(baseURL string) (*ollama.Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid ollama base url %q", baseURL)
	}
	return ollama.NewClient(u, http.DefaultClient), nil
}

type OllamaProvider struct {
	client  ollamaClient
	model   string
	timeout time.Duration
}

// NewOllamaProvider talks to the Ollama server at baseURL. timeout bounds a
// non-streaming Chat; zero disables it.
func NewOllamaProvider(baseURL, model string, timeout time.Duration) (*OllamaProvider, error) {
	client, err := newOllamaClient(baseURL)
	if err != nil {
		return nil, err
	}
	return &OllamaProvider{client: client, model: model, timeout: timeout}, nil
}

func (p *OllamaProvider) Name() string { return ProviderOllama }

func (p *OllamaProvider) Chat(ctx context.Context, msgs []Message) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	stream := false
	req := &ollama.ChatRequest{
		Model:    p.model,
		Messages: toOllamaMessages(msgs),
		Stream:   &stream,
	}

	var answer strings.Builder
	err := p.client.Chat(ctx, req, func(res ollama.ChatResponse) error {
		answer.WriteString(res.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}
	return answer.String(), nil
}

func (p *OllamaProvider) StreamChat(ctx context.Context, msgs []Message, onToken func(string) error) (string, error) {
	req := &ollama.ChatRequest{
		Model:    p.model,
		Messages: toOllamaMessages(msgs),
	}

	var answer strings.Builder
	err := p.client.Chat(ctx, req, func(res ollama.ChatResponse) error {
		if res.Message.Content == "" {
			return nil
		}
		answer.WriteString(res.Message.Content)
		return onToken(res.Message.Content)
	})
	if err != nil {
		return answer.String(), fmt.Errorf("ollama chat failed: %w", err)
	}
	return answer.String(), nil
}

// Ping sends a one-line chat, the cheapest request that proves the model loads.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	_, err := p.Chat(ctx, []Message{{Role: RoleUser, Content: "hello"}})
	return err
}

func toOllamaMessages(msgs []Message) []ollama.Message {
	out := make([]ollama.Message, len(msgs))
	for i, m := range msgs {
		out[i] = ollama.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

// OllamaEmbedder embeds text with an Ollama embedding model.
type OllamaEmbedder struct {
	client ollamaClient
	model  string
}

func NewOllamaEmbedder(baseURL, model string) (*OllamaEmbedder, error) {
	client, err := newOllamaClient(baseURL)
	if err != nil {
		return nil, err
	}
	return &OllamaEmbedder{client: client, model: model}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.Embed(ctx, &ollama.EmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("ollama embed failed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed returned %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}
