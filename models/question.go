package models

import "time"

// Question is a user-authored post attached to a topic.
type Question struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	TopicID    uint      `gorm:"index;not null" json:"topic_id"`
	Author     string    `gorm:"size:64;index;not null" json:"author"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	ReplyCount int64     `gorm:"->;-:migration" json:"reply_count"`
	Replies    []Reply   `gorm:"foreignKey:QuestionID" json:"replies,omitempty"`
}
