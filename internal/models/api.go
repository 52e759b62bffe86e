package models

type SearchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	SortBy     string `json:"sort_by"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
}

type SearchResponse struct {
	Papers     []Paper `json:"papers"`
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
	Total      int     `json:"total"`
}

type AskRequest struct {
	Query      string `json:"query"`
	Question   string `json:"question"`
	MaxResults int    `json:"max_results"`
	TopK       int    `json:"top_k"`
}

type Citation struct {
	PaperID    string   `json:"paper_id"`
	Title      string   `json:"title"`
	Authors    []string `json:"authors"`
	ArxivURL   string   `json:"arxiv_url"`
	PDFURL     string   `json:"pdf_url,omitempty"`
	ChunkIndex int      `json:"chunk_index"`
	Content    string   `json:"content"`
}

type AskResponse struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// Defaults applied when a request omits a field (zero value).
const (
	DefaultSearchMaxResults = 20
	DefaultSortBy           = "relevance"
	DefaultPage             = 1
	DefaultPageSize         = 10
	DefaultAskMaxResults    = 5
	DefaultTopK             = 5
)

// NewSearchRequest returns a request populated with the defaults, ready to be
// overlaid by a JSON body.
func NewSearchRequest() SearchRequest {
	return SearchRequest{
		MaxResults: DefaultSearchMaxResults,
		SortBy:     DefaultSortBy,
		Page:       DefaultPage,
		PageSize:   DefaultPageSize,
	}
}

func NewAskRequest() AskRequest {
	return AskRequest{
		MaxResults: DefaultAskMaxResults,
		TopK:       DefaultTopK,
	}
}
