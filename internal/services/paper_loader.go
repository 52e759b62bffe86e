package services

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"arxiv_rag_go_backend/internal/errors"
	"arxiv_rag_go_backend/internal/httputil"
	"arxiv_rag_go_backend/internal/models"

	"github.com/nickng/bibtex"
	"github.com/rs/zerolog"
)

var (
	arxivRefPattern = regexp.MustCompile(`(?i)(?:arxiv:\s*|arxiv\.org/(?:abs|pdf)/)(\d{4}\.\d{4,5})`)
	bareIDPattern   = regexp.MustCompile(`^\d{4}\.\d{4,5}(v\d+)?$`)
	braceStripper   = strings.NewReplacer("{", "", "}", "")
)

// ReferenceLoader reads the bibliography of a paper from its arXiv e-print
// source archive.
type ReferenceLoader struct {
	eprintBaseURL string
	client        *http.Client
	store         ReferenceStore
}

// NewReferenceLoader builds a loader. store may be nil, in which case every
// call downloads the archive.
func NewReferenceLoader(eprintBaseURL string, client *http.Client, store ReferenceStore) *ReferenceLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &ReferenceLoader{eprintBaseURL: eprintBaseURL, client: client, store: store}
}

// LoadReferences returns the entries of every .bib file in the source
// archive, in file order.
func (l *ReferenceLoader) LoadReferences(ctx context.Context, paperID string) ([]models.Reference, error) {
	log := zerolog.Ctx(ctx)
	if l.store != nil {
		refs, ok, err := l.store.GetReferences(ctx, paperID)
		if err != nil {
			log.Warn().Err(err).Str("paper_id", paperID).Msg("failed to read stored references")
		} else if ok {
			return refs, nil
		}
	}

	source, err := l.downloadSource(ctx, paperID)
	if err != nil {
		return nil, err
	}

	bibFiles, err := extractBibFiles(source)
	if err != nil {
		return nil, errors.New502Error(fmt.Sprintf("failed to read source of %s", paperID), err)
	}
	if len(bibFiles) == 0 {
		return nil, errors.New404Error(fmt.Sprintf("no BibTeX references found for %s", paperID))
	}

	refs := []models.Reference{}
	for i, content := range bibFiles {
		bib, err := bibtex.Parse(strings.NewReader(content))
		if err != nil {
			log.Warn().Err(err).Str("paper_id", paperID).Int("file", i).Msg("skipping unparsable bib file")
			continue
		}
		for _, entry := range bib.Entries {
			refs = append(refs, toReference(entry))
		}
	}

	if l.store != nil && len(refs) > 0 {
		if err := l.store.SaveReferences(ctx, paperID, refs); err != nil {
			log.Warn().Err(err).Str("paper_id", paperID).Msg("failed to store references")
		}
	}
	return refs, nil
}

func (l *ReferenceLoader) downloadSource(ctx context.Context, paperID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.eprintBaseURL+paperID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := httputil.DoWithRetry(ctx, l.client, req, 3)
	if err != nil {
		return nil, errors.New502Error("failed to download paper source", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.New404Error(fmt.Sprintf("no source available for %s", paperID))
	case resp.StatusCode != http.StatusOK:
		return nil, errors.New502Error(fmt.Sprintf("failed to download paper source: status code %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New502Error("failed to read paper source", err)
	}
	return body, nil
}

// extractBibFiles returns the .bib files of a gzipped tar archive. A source
// that is a single gzipped file (no tar) has no bibliography.
func extractBibFiles(content []byte) ([]string, error) {
	gzr, err := gzip.NewReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	var bibFiles []string
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if len(bibFiles) == 0 {
				return nil, nil
			}
			return nil, fmt.Errorf("error reading tar: %w", err)
		}
		if !strings.HasSuffix(strings.ToLower(header.Name), ".bib") {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", header.Name, err)
		}
		bibFiles = append(bibFiles, string(data))
	}
	return bibFiles, nil
}

func toReference(entry *bibtex.BibEntry) models.Reference {
	field := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := entry.Fields[k]; ok && v != nil {
				if s := collapseSpace(braceStripper.Replace(v.String())); s != "" {
					return s
				}
			}
		}
		return ""
	}

	var authors []string
	for _, a := range strings.Split(field("author"), " and ") {
		if a = strings.TrimSpace(a); a != "" {
			authors = append(authors, a)
		}
	}

	ref := models.Reference{
		Key:     entry.CiteName,
		Type:    strings.ToLower(entry.Type),
		Title:   field("title"),
		Authors: authors,
		Year:    field("year"),
		Venue:   field("journal", "booktitle"),
	}
	ref.ArxivID = detectArxivID(entry)
	return ref
}

// detectArxivID finds an arXiv identifier in the eprint field or in any
// field that cites arxiv.org or "arXiv:".
func detectArxivID(entry *bibtex.BibEntry) string {
	if v, ok := entry.Fields["eprint"]; ok && v != nil {
		if id := strings.TrimSpace(braceStripper.Replace(v.String())); bareIDPattern.MatchString(id) {
			return id
		}
	}
	for _, k := range []string{"journal", "url", "note", "howpublished", "booktitle"} {
		if v, ok := entry.Fields[k]; ok && v != nil {
			if m := arxivRefPattern.FindStringSubmatch(v.String()); len(m) > 1 {
				return m[1]
			}
		}
	}
	return ""
}
