package api

import (
	"net/http"
	"regexp"

	"arxiv_rag_go_backend/internal/errors"
	"arxiv_rag_go_backend/internal/utils/bibtexparser"

	"github.com/gin-gonic/gin"
)

// paperIDPattern accepts new-style ids (2401.00001, optional version) and
// old-style archive ids (hep-th/9901001v2).
var paperIDPattern = regexp.MustCompile(`^(\d{4}\.\d{4,5}|[a-zA-Z\-\.]+/\d{7})(v\d+)?$`)

func paperID(c *gin.Context) (string, bool) {
	id := c.Param("paper_id")
	if !paperIDPattern.MatchString(id) {
		errors.HandleError(c, errors.New400Error("invalid arXiv id: "+id))
		return "", false
	}
	return id, true
}

func getPaperHandler(rag RAG) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paperID(c)
		if !ok {
			return
		}
		paper, err := rag.GetPaper(c.Request.Context(), id)
		if err != nil {
			errors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, paper)
	}
}

func getPaperBibTeXHandler(rag RAG) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paperID(c)
		if !ok {
			return
		}
		paper, err := rag.GetPaper(c.Request.Context(), id)
		if err != nil {
			errors.HandleError(c, err)
			return
		}
		c.Data(http.StatusOK, "text/x-bibtex; charset=utf-8", []byte(bibtexparser.Format(*paper)))
	}
}

func ingestPaperHandler(rag RAG) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paperID(c)
		if !ok {
			return
		}
		added, err := rag.IngestFullText(c.Request.Context(), id)
		if err != nil {
			errors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"paper_id":     id,
			"chunks_added": added,
		})
	}
}

func getReferencesHandler(refs ReferenceSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paperID(c)
		if !ok {
			return
		}
		references, err := refs.LoadReferences(c.Request.Context(), id)
		if err != nil {
			errors.HandleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"paper_id":   id,
			"references": references,
		})
	}
}
