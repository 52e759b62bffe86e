package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"arxiv_rag_go_backend/internal/errors"
	"arxiv_rag_go_backend/internal/httputil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const atomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2401.00002v2</id>
    <updated>2024-01-05T10:00:00Z</updated>
    <published>2024-01-02T09:30:00Z</published>
    <title>Zeta:   Sparse
      Attention</title>
    <summary>  We study sparse attention.
    It is fast.  </summary>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
    <link href="http://arxiv.org/abs/2401.00002v2" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2401.00002v2" rel="related" type="application/pdf"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2401.00001v1</id>
    <published>2024-01-01T00:00:00Z</published>
    <title>alpha diffusion</title>
    <summary>Diffusion models.</summary>
    <author><name>Grace Hopper</name></author>
  </entry>
</feed>`

func newFeedServer(t *testing.T, body string, seen *http.Request) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen = *r
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestArxivService_SearchPapers(t *testing.T) {
	var seen http.Request
	srv := newFeedServer(t, atomFeed, &seen)
	svc := NewArxivService(srv.URL, srv.Client())

	papers, err := svc.SearchPapers(context.Background(), "sparse  attention", 20, "date")
	require.NoError(t, err)
	require.Len(t, papers, 2)

	q := seen.URL.Query()
	assert.Equal(t, "all:sparse attention", q.Get("search_query"))
	assert.Equal(t, "20", q.Get("max_results"))
	assert.Equal(t, "submittedDate", q.Get("sortBy"))
	assert.Equal(t, "descending", q.Get("sortOrder"))

	p := papers[0]
	assert.Equal(t, "2401.00002v2", p.PaperID)
	assert.Equal(t, "Zeta: Sparse Attention", p.Title)
	assert.Equal(t, "We study sparse attention. It is fast.", p.Summary)
	assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, p.Authors)
	assert.Equal(t, "2024-01-02", p.Published)
	assert.Equal(t, "2024-01-05", p.Updated)
	assert.Equal(t, "http://arxiv.org/abs/2401.00002v2", p.ArxivURL)
	assert.Equal(t, "http://arxiv.org/pdf/2401.00002v2", p.PDFURL)

	assert.Equal(t, "2024-01-01", papers[1].Updated, "updated falls back to published")
	assert.Empty(t, papers[1].PDFURL)
}

func TestArxivService_SortByTitle(t *testing.T) {
	var seen http.Request
	srv := newFeedServer(t, atomFeed, &seen)
	svc := NewArxivService(srv.URL, srv.Client())

	papers, err := svc.SearchPapers(context.Background(), "x", 5, "title")
	require.NoError(t, err)

	assert.Equal(t, "relevance", seen.URL.Query().Get("sortBy"))
	assert.Equal(t, "alpha diffusion", papers[0].Title)
	assert.Equal(t, "Zeta: Sparse Attention", papers[1].Title)
}

func TestArxivService_GetPaper(t *testing.T) {
	var seen http.Request
	srv := newFeedServer(t, atomFeed, &seen)
	svc := NewArxivService(srv.URL, srv.Client())

	paper, err := svc.GetPaper(context.Background(), "2401.00002v2")
	require.NoError(t, err)
	assert.Equal(t, "2401.00002v2", seen.URL.Query().Get("id_list"))
	assert.Equal(t, "2401.00002v2", paper.PaperID)
}

func TestArxivService_GetPaperUnknown(t *testing.T) {
	srv := newFeedServer(t, `<feed xmlns="http://www.w3.org/2005/Atom">
  <entry><id>http://arxiv.org/api/errors#incorrect_id_format_for_bogus</id><title>Error</title></entry>
</feed>`, nil)
	svc := NewArxivService(srv.URL, srv.Client())

	_, err := svc.GetPaper(context.Background(), "bogus")
	assert.True(t, errors.IsStatus(err, http.StatusNotFound))
}

func TestArxivService_UpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewArxivService(srv.URL, srv.Client()).SearchPapers(context.Background(), "x", 1, "")
	assert.True(t, errors.IsStatus(err, http.StatusBadGateway))
	assert.ErrorContains(t, err, "HTTP 503")

	bad := newFeedServer(t, "<feed><entry>", nil)
	_, err = NewArxivService(bad.URL, bad.Client()).SearchPapers(context.Background(), "x", 1, "")
	assert.True(t, errors.IsStatus(err, http.StatusBadGateway))
}

func TestArxivService_RetriesRateLimit(t *testing.T) {
	orig := httputil.RetryBaseDelay
	httputil.RetryBaseDelay = time.Millisecond
	t.Cleanup(func() { httputil.RetryBaseDelay = orig })

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, atomFeed)
	}))
	defer srv.Close()

	papers, err := NewArxivService(srv.URL, srv.Client()).SearchPapers(context.Background(), "x", 2, "")
	require.NoError(t, err)
	assert.Len(t, papers, 2)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}
