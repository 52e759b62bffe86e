package vectordb

import (
	"arxiv_rag_go_backend/internal/models"
)

const DefaultChunkSize = 500

// ChunkText splits text into consecutive windows of size runes with no
// overlap. The last window may be shorter.
func ChunkText(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(text)
	out := make([]string, 0, len(runes)/size+1)
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

// ChunksForPaper chunks the paper summary. Indexes start at zero.
func ChunksForPaper(p models.Paper, size int) []models.Chunk {
	return buildChunks(p, ChunkText(p.Summary, size), 0, models.ChunkSourceSummary)
}

// FullTextChunks chunks extracted full text. Indexes continue after the
// summary chunks so both can live in one index.
func FullTextChunks(p models.Paper, text string, size int) []models.Chunk {
	start := len(ChunkText(p.Summary, size))
	return buildChunks(p, ChunkText(text, size), start, models.ChunkSourceFullText)
}

func buildChunks(p models.Paper, parts []string, start int, source string) []models.Chunk {
	chunks := make([]models.Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, models.Chunk{
			PaperID:    p.PaperID,
			ChunkIndex: start + i,
			Title:      p.Title,
			Authors:    p.Authors,
			ArxivURL:   p.ArxivURL,
			PDFURL:     p.PDFURL,
			Content:    part,
			Source:     source,
		})
	}
	return chunks
}
