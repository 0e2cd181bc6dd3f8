package forum

import (
	"context"

	"github.com/cppla/qforum/models"
)

// Store is the persistence contract shared by the relational and the local
// store. Lookups of unknown ids return an error wrapping ErrNotFound; a
// duplicate username on CreateUser returns an error wrapping ErrConflict.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UserByID(ctx context.Context, id uint) (*models.User, error)

	ListTopics(ctx context.Context) ([]models.Topic, error)
	Topic(ctx context.Context, id uint) (*models.Topic, error)
	CreateTopic(ctx context.Context, t *models.Topic) error
	SaveTopic(ctx context.Context, t *models.Topic) error
	// DeleteTopic removes the topic and, in the same unit of work, moves its
	// questions to the oldest remaining topic. When no topic remains the
	// fallback is created first and receives them.
	DeleteTopic(ctx context.Context, id uint, fallback models.Topic) error

	ListQuestions(ctx context.Context, q QuestionQuery) ([]models.Question, error)
	// Question returns the question with ReplyCount set and, when withReplies
	// is true, its replies oldest-first.
	Question(ctx context.Context, id uint, withReplies bool) (*models.Question, error)
	CreateQuestion(ctx context.Context, q *models.Question) error
	SaveQuestion(ctx context.Context, q *models.Question) error
	// DeleteQuestion removes the question and all of its replies atomically.
	DeleteQuestion(ctx context.Context, id uint) error

	Reply(ctx context.Context, id uint) (*models.Reply, error)
	// CreateReply fails with ErrNotFound when the question no longer exists.
	CreateReply(ctx context.Context, r *models.Reply) error
	SaveReply(ctx context.Context, r *models.Reply) error
	DeleteReply(ctx context.Context, id uint) error

	Stats(ctx context.Context) (Stats, error)
}

// Stats are aggregate entity counts.
type Stats struct {
	Users     int64 `json:"user_count"`
	Topics    int64 `json:"topic_count"`
	Questions int64 `json:"question_count"`
	Replies   int64 `json:"reply_count"`
}

// FallbackTopic is created when the last topic is deleted while questions
// still reference it.
func FallbackTopic() models.Topic {
	return models.Topic{Title: "General", Color: models.DefaultTopicColor}
}
