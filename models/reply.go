package models

import "time"

// Reply is a response attached to exactly one question.
type Reply struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	QuestionID uint      `gorm:"index;not null" json:"question_id"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	Author     string    `gorm:"size:64;index;not null" json:"author"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
