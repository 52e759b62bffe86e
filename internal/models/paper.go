package models

import "time"

// Paper is the metadata of one arXiv paper as returned by /search.
type Paper struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	PaperID   string    `gorm:"type:varchar(64);uniqueIndex" json:"paper_id"`
	Title     string    `json:"title"`
	Authors   []string  `gorm:"serializer:json" json:"authors"`
	Summary   string    `json:"summary"`
	Published string    `gorm:"type:varchar(10)" json:"published"`
	Updated   string    `gorm:"type:varchar(10)" json:"updated"`
	ArxivURL  string    `json:"arxiv_url"`
	PDFURL    string    `json:"pdf_url,omitempty"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Reference is one bibliography entry of a paper. ArxivID is set when the
// cited work is on arXiv.
type Reference struct {
	ID            uint     `gorm:"primaryKey" json:"-"`
	ParentPaperID string   `gorm:"type:varchar(64);index" json:"-"`
	Position      int      `json:"-"`
	Key           string   `json:"key"`
	Type          string   `gorm:"type:varchar(32)" json:"type"`
	Title         string   `json:"title"`
	Authors       []string `gorm:"serializer:json" json:"authors"`
	Year          string   `gorm:"type:varchar(16)" json:"year,omitempty"`
	Venue         string   `json:"venue,omitempty"`
	ArxivID       string   `gorm:"type:varchar(64)" json:"arxiv_id,omitempty"`
}
