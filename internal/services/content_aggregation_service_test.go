package services

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"arxiv_rag_go_backend/internal/errors"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPDFProcessor is a mock for PDF processing
type MockPDFProcessor struct {
	mock.Mock
}

func (m *MockPDFProcessor) extractTextFromPDF(reader io.Reader) (string, error) {
	args := m.Called(reader)
	return args.String(0), args.Error(1)
}

func createTestPDF(content string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(40, 10, content)

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	return buf.Bytes(), err
}

func TestExtractTextFromPDF(t *testing.T) {
	data, err := createTestPDF("Attention is all you need")
	require.NoError(t, err)

	text, err := ExtractTextFromPDF(data)
	require.NoError(t, err)
	assert.Contains(t, text, "Attention")
}

func TestExtractTextFromPDF_InvalidData(t *testing.T) {
	_, err := ExtractTextFromPDF([]byte("not a pdf"))
	assert.Error(t, err)
}

func TestContentAggregationService_FetchFullText(t *testing.T) {
	var requested string
	mockArxiv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		pdfContent, err := createTestPDF("Mock arXiv paper content")
		assert.NoError(t, err)
		w.WriteHeader(http.StatusOK)
		w.Write(pdfContent)
	}))
	defer mockArxiv.Close()

	service := NewContentAggregationService(mockArxiv.URL + "/pdf/")

	content, err := service.FetchFullText(context.Background(), "2401.00001v1")
	require.NoError(t, err)
	assert.Equal(t, "/pdf/2401.00001v1.pdf", requested)
	assert.Contains(t, content, "Mock arXiv paper content")
}

func TestContentAggregationService_FetchFullTextUsesProcessor(t *testing.T) {
	mockPDFProcessor := new(MockPDFProcessor)
	mockArxiv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4"))
	}))
	defer mockArxiv.Close()

	service := NewContentAggregationService(mockArxiv.URL + "/")
	service.pdfProcessor = mockPDFProcessor
	mockPDFProcessor.On("extractTextFromPDF", mock.Anything).Return("Extracted arXiv content", nil)

	content, err := service.FetchFullText(context.Background(), "1234.5678")
	assert.NoError(t, err)
	assert.Equal(t, "Extracted arXiv content", content)
	mockPDFProcessor.AssertExpectations(t)
}

func TestContentAggregationService_FetchFullTextNotFound(t *testing.T) {
	mockArxiv := httptest.NewServer(http.NotFoundHandler())
	defer mockArxiv.Close()

	service := NewContentAggregationService(mockArxiv.URL + "/")
	_, err := service.FetchFullText(context.Background(), "0000.0000")
	assert.True(t, errors.IsStatus(err, http.StatusNotFound))
}
