package services

import (
	"context"

	"arxiv_rag_go_backend/internal/llm"
	"arxiv_rag_go_backend/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockPaperSearcher struct {
	mock.Mock
}

func (m *MockPaperSearcher) SearchPapers(ctx context.Context, query string, maxResults int, sortBy string) ([]models.Paper, error) {
	args := m.Called(ctx, query, maxResults, sortBy)
	papers, _ := args.Get(0).([]models.Paper)
	return papers, args.Error(1)
}

func (m *MockPaperSearcher) GetPaper(ctx context.Context, paperID string) (*models.Paper, error) {
	args := m.Called(ctx, paperID)
	paper, _ := args.Get(0).(*models.Paper)
	return paper, args.Error(1)
}

type MockFullTextFetcher struct {
	mock.Mock
}

func (m *MockFullTextFetcher) FetchFullText(ctx context.Context, paperID string) (string, error) {
	args := m.Called(ctx, paperID)
	return args.String(0), args.Error(1)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Chat(ctx context.Context, msgs []llm.Message) (string, error) {
	args := m.Called(ctx, msgs)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) StreamChat(ctx context.Context, msgs []llm.Message, onToken func(string) error) (string, error) {
	args := m.Called(ctx, msgs, onToken)
	for _, tok := range args.Get(0).([]string) {
		if err := onToken(tok); err != nil {
			return "", err
		}
	}
	return args.String(1), args.Error(2)
}

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type recordingPublisher struct {
	topics []string
	msgs   []interface{}
}

func (p *recordingPublisher) Publish(topic string, msg interface{}) int {
	p.topics = append(p.topics, topic)
	p.msgs = append(p.msgs, msg)
	return 1
}
