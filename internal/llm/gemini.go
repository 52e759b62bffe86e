package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GeminiProvider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiProvider(ctx context.Context, apiKey, model string, timeout time.Duration) (*GeminiProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_AI_STUDIO_API_KEY is not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiProvider{client: client, model: model, timeout: timeout}, nil
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

func (p *GeminiProvider) Close() error { return p.client.Close() }

// session turns msgs into a chat session plus the final user turn.
func (p *GeminiProvider) session(msgs []Message) (*genai.ChatSession, []genai.Part) {
	model := p.client.GenerativeModel(p.model)
	system, history, last := splitForGemini(msgs)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	cs := model.StartChat()
	cs.History = history
	return cs, []genai.Part{genai.Text(last)}
}

func (p *GeminiProvider) Chat(ctx context.Context, msgs []Message) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	cs, parts := p.session(msgs)
	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini chat failed: %w", err)
	}
	return responseText(resp), nil
}

func (p *GeminiProvider) StreamChat(ctx context.Context, msgs []Message, onToken func(string) error) (string, error) {
	cs, parts := p.session(msgs)
	iter := cs.SendMessageStream(ctx, parts...)

	var answer strings.Builder
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			return answer.String(), nil
		}
		if err != nil {
			return answer.String(), fmt.Errorf("gemini stream failed: %w", err)
		}
		text := responseText(resp)
		if text == "" {
			continue
		}
		answer.WriteString(text)
		if err := onToken(text); err != nil {
			return answer.String(), err
		}
	}
}

func (p *GeminiProvider) Ping(ctx context.Context) error {
	_, err := p.Chat(ctx, []Message{{Role: RoleUser, Content: "hello"}})
	return err
}

// splitForGemini joins system messages into one instruction, maps the
// remaining turns to Gemini roles and pops the final user turn.
func splitForGemini(msgs []Message) (string, []*genai.Content, string) {
	var system []string
	var turns []Message
	for _, m := range msgs {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}

	var last string
	if n := len(turns); n > 0 && turns[n-1].Role == RoleUser {
		last = turns[n-1].Content
		turns = turns[:n-1]
	}

	history := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return strings.Join(system, "\n\n"), history, last
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			switch v := part.(type) {
			case genai.Text:
				b.WriteString(string(v))
			case *genai.Text:
				b.WriteString(string(*v))
			}
		}
		break
	}
	return b.String()
}
