package models

import "time"

// DefaultTopicColor is used when a topic is created without a color.
const DefaultTopicColor = "#8aa2ff"

// Topic is a named, colored tag that groups questions.
type Topic struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Title         string    `gorm:"size:255;not null" json:"title"`
	Color         string    `gorm:"size:16;not null" json:"color"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	QuestionCount int64     `gorm:"->;-:migration" json:"question_count"`
}
