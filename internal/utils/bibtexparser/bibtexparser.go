package bibtexparser

import (
	"fmt"
	"regexp"
	"strings"

	"arxiv_rag_go_backend/internal/models"

	"github.com/nickng/bibtex"
)

var (
	versionSuffix = regexp.MustCompile(`v\d+$`)
	nonKeyChars   = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// CiteKey builds "<first author surname><year>_<arxiv id>" with the id's
// punctuation replaced, e.g. "vaswani2017_1706_03762".
func CiteKey(p models.Paper) string {
	surname := "anon"
	if len(p.Authors) > 0 {
		parts := strings.Fields(p.Authors[0])
		if len(parts) > 0 {
			surname = strings.ToLower(nonKeyChars.ReplaceAllString(parts[len(parts)-1], ""))
		}
	}
	id := nonKeyChars.ReplaceAllString(versionSuffix.ReplaceAllString(p.PaperID, ""), "_")
	return fmt.Sprintf("%s%s_%s", surname, year(p), id)
}

// EntryForPaper describes an arXiv preprint as a BibTeX @article.
func EntryForPaper(p models.Paper) *bibtex.BibEntry {
	entry := bibtex.NewBibEntry("article", CiteKey(p))
	id := versionSuffix.ReplaceAllString(p.PaperID, "")

	entry.AddField("title", bibtex.NewBibConst(escape(p.Title)))
	entry.AddField("author", bibtex.NewBibConst(escape(strings.Join(p.Authors, " and "))))
	if y := year(p); y != "" {
		entry.AddField("year", bibtex.NewBibConst(y))
	}
	entry.AddField("journal", bibtex.NewBibConst("arXiv preprint arXiv:"+id))
	entry.AddField("eprint", bibtex.NewBibConst(id))
	entry.AddField("archiveprefix", bibtex.NewBibConst("arXiv"))
	if p.ArxivURL != "" {
		entry.AddField("url", bibtex.NewBibConst(p.ArxivURL))
	}
	return entry
}

// Format renders the entry for a paper.
func Format(p models.Paper) string {
	return EntryForPaper(p).String()
}

func year(p models.Paper) string {
	if len(p.Published) >= 4 {
		return p.Published[:4]
	}
	return ""
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "{", "")
	s = strings.ReplaceAll(s, "}", "")
	return strings.Join(strings.Fields(s), " ")
}
