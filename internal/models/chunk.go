package models

const (
	ChunkSourceSummary  = "summary"
	ChunkSourceFullText = "fulltext"
)

// Chunk is a fixed-size window of a paper's text and the unit of retrieval.
// (PaperID, ChunkIndex) identifies a chunk.
type Chunk struct {
	ID         uint     `gorm:"primaryKey" json:"-"`
	PaperID    string   `gorm:"type:varchar(64);uniqueIndex:idx_chunk_identity" json:"paper_id"`
	ChunkIndex int      `gorm:"uniqueIndex:idx_chunk_identity" json:"chunk_index"`
	Title      string   `json:"title"`
	Authors    []string `gorm:"serializer:json" json:"authors"`
	ArxivURL   string   `json:"arxiv_url"`
	PDFURL     string   `json:"pdf_url,omitempty"`
	Content    string   `json:"content"`
	Source     string   `gorm:"type:varchar(16)" json:"source"`
}

// Key returns the identity of the chunk inside an index.
func (c Chunk) Key() ChunkKey {
	return ChunkKey{PaperID: c.PaperID, ChunkIndex: c.ChunkIndex}
}

type ChunkKey struct {
	PaperID    string
	ChunkIndex int
}
