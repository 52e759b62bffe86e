// Package llm wraps the language model backends used to answer questions.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Provider is a chat model. StreamChat calls onToken for every generated
// fragment and returns the full answer.
type Provider interface {
	Name() string
	Chat(ctx context.Context, msgs []Message) (string, error)
	StreamChat(ctx context.Context, msgs []Message, onToken func(string) error) (string, error)
	Ping(ctx context.Context) error
}

const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

type Options struct {
	Provider      string
	OllamaBaseURL string
	OllamaModel   string
	GeminiAPIKey  string
	GeminiModel   string
	Timeout       time.Duration
}

// New builds the provider selected by opts.Provider. The returned close
// function releases client resources and is never nil.
func New(ctx context.Context, opts Options) (Provider, func() error, error) {
	switch strings.ToLower(opts.Provider) {
	case ProviderOllama, "":
		p, err := NewOllamaProvider(opts.OllamaBaseURL, opts.OllamaModel, opts.Timeout)
		if err != nil {
			return nil, nil, err
		}
		return p, func() error { return nil }, nil
	case ProviderGemini:
		p, err := NewGeminiProvider(ctx, opts.GeminiAPIKey, opts.GeminiModel, opts.Timeout)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}
