package models

import "time"

// AskRecord stores one answered question.
type AskRecord struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Question  string     `json:"question"`
	Query     string     `json:"query"`
	Answer    string     `json:"answer"`
	Provider  string     `gorm:"type:varchar(32)" json:"provider"`
	Citations []Citation `gorm:"serializer:json" json:"citations"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}
