package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"arxiv_rag_go_backend/internal/errors"

	"github.com/ledongthuc/pdf"
)

// maxPDFBytes bounds a downloaded PDF.
const maxPDFBytes = 50 << 20

type pdfProcessor interface {
	extractTextFromPDF(r io.Reader) (string, error)
}

type ledongthucProcessor struct{}

func (ledongthucProcessor) extractTextFromPDF(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}
	return ExtractTextFromPDF(data)
}

// ContentAggregationService downloads arXiv PDFs and extracts their text.
type ContentAggregationService struct {
	arxivBaseURL string
	client       *http.Client
	pdfProcessor pdfProcessor
}

func NewContentAggregationService(arxivBaseURL string) *ContentAggregationService {
	return &ContentAggregationService{
		arxivBaseURL: arxivBaseURL,
		client:       &http.Client{Timeout: 2 * time.Minute},
		pdfProcessor: ledongthucProcessor{},
	}
}

// FetchFullText downloads the PDF for paperID from the arXiv PDF base URL
// and returns its plain text.
func (s *ContentAggregationService) FetchFullText(ctx context.Context, paperID string) (string, error) {
	pdfURL := fmt.Sprintf("%s%s.pdf", s.arxivBaseURL, paperID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating PDF request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.New502Error(fmt.Sprintf("failed to download arXiv paper: %v", err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", errors.New404Error(fmt.Sprintf("no PDF available for paper %s", paperID))
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.New502Error(fmt.Sprintf("unexpected status code when downloading arXiv paper: %d", resp.StatusCode), nil)
	}

	content, err := s.pdfProcessor.extractTextFromPDF(io.LimitReader(resp.Body, maxPDFBytes))
	if err != nil {
		return "", errors.New502Error(fmt.Sprintf("failed to extract text from PDF: %v", err), err)
	}
	return content, nil
}

// ExtractTextFromPDF returns the plain text of every page, pages separated
// by a blank line.
func ExtractTextFromPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var content strings.Builder
	totalPage := r.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		content.WriteString(text)
		content.WriteString("\n\n")
	}

	text := strings.TrimSpace(content.String())
	if text == "" {
		return "", fmt.Errorf("no text content extracted from PDF")
	}
	return text, nil
}
