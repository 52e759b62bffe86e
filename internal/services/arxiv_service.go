package services

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"arxiv_rag_go_backend/internal/errors"
	"arxiv_rag_go_backend/internal/httputil"
	"arxiv_rag_go_backend/internal/models"

	"github.com/rs/zerolog"
)

const (
	SortRelevance = "relevance"
	SortDate      = "date"
	SortTitle     = "title"
)

// ArxivService queries the arXiv Atom API.
type ArxivService struct {
	apiURL     string
	client     *http.Client
	maxRetries int
}

func NewArxivService(apiURL string, client *http.Client) *ArxivService {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &ArxivService{apiURL: apiURL, client: client}
}

// arxivSortBy maps a request sort key to the API sortBy value. arXiv has no
// title ordering; title results are sorted locally after the fetch.
func arxivSortBy(sortBy string) string {
	if strings.EqualFold(sortBy, SortDate) {
		return "submittedDate"
	}
	return "relevance"
}

func buildSearchQuery(query string) string {
	return "all:" + strings.Join(strings.Fields(query), " ")
}

func (s *ArxivService) SearchPapers(ctx context.Context, query string, maxResults int, sortBy string) ([]models.Paper, error) {
	params := url.Values{}
	params.Set("search_query", buildSearchQuery(query))
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprint(maxResults))
	params.Set("sortBy", arxivSortBy(sortBy))
	params.Set("sortOrder", "descending")

	papers, err := s.fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(sortBy, SortTitle) {
		sort.SliceStable(papers, func(i, j int) bool {
			return strings.ToLower(papers[i].Title) < strings.ToLower(papers[j].Title)
		})
	}

	zerolog.Ctx(ctx).Info().
		Str("query", query).
		Str("sort_by", sortBy).
		Int("count", len(papers)).
		Msg("arXiv search completed")
	return papers, nil
}

// GetPaper looks up a single paper by id. It returns a 404 CustomError when
// arXiv does not know the id.
func (s *ArxivService) GetPaper(ctx context.Context, paperID string) (*models.Paper, error) {
	params := url.Values{}
	params.Set("id_list", paperID)

	papers, err := s.fetch(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(papers) == 0 {
		return nil, errors.New404Error(fmt.Sprintf("paper %s not found on arXiv", paperID))
	}
	return &papers[0], nil
}

func (s *ArxivService) fetch(ctx context.Context, params url.Values) ([]models.Paper, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating arXiv request: %w", err)
	}

	resp, err := httputil.DoWithRetry(ctx, s.client, req, s.maxRetries)
	if err != nil {
		return nil, errors.New502Error(fmt.Sprintf("arXiv request failed: %v", err), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New502Error(fmt.Sprintf("arXiv API returned HTTP %d", resp.StatusCode), nil)
	}

	var feed ArxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, errors.New502Error("failed to parse arXiv response", err)
	}

	papers := make([]models.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		if p, ok := entry.toPaper(); ok {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

// ArxivEntry represents the structure of an entry in the arXiv API response
type ArxivEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Updated   string `xml:"updated"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Href  string `xml:"href,attr"`
		Rel   string `xml:"rel,attr"`
		Type  string `xml:"type,attr"`
		Title string `xml:"title,attr"`
	} `xml:"link"`
}

// ArxivFeed represents the structure of the arXiv API response
type ArxivFeed struct {
	Entries []ArxivEntry `xml:"entry"`
}

func (e ArxivEntry) toPaper() (models.Paper, bool) {
	entryID := strings.TrimSpace(e.ID)
	paperID := entryID[strings.LastIndex(entryID, "/")+1:]
	// arXiv reports unknown ids as an entry titled "Error".
	if paperID == "" || strings.Contains(entryID, "/api/errors") {
		return models.Paper{}, false
	}

	authors := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		authors = append(authors, collapseSpace(a.Name))
	}

	var pdfURL string
	for _, link := range e.Links {
		if link.Type == "application/pdf" || link.Title == "pdf" {
			pdfURL = link.Href
			break
		}
	}

	published := formatDate(e.Published)
	updated := formatDate(e.Updated)
	if updated == "" {
		updated = published
	}

	return models.Paper{
		PaperID:   paperID,
		Title:     collapseSpace(e.Title),
		Authors:   authors,
		Summary:   collapseSpace(e.Summary),
		Published: published,
		Updated:   updated,
		ArxivURL:  entryID,
		PDFURL:    pdfURL,
	}, true
}

func formatDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		if len(s) >= 10 {
			return s[:10]
		}
		return s
	}
	return t.Format("2006-01-02")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
