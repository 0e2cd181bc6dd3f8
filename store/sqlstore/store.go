// Package sqlstore implements forum.Store on a relational database through gorm.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/qforum/forum"
	"github.com/cppla/qforum/models"
)

const (
	topicColumns    = "topics.*, (SELECT COUNT(*) FROM questions WHERE questions.topic_id = topics.id) AS question_count"
	questionColumns = "questions.*, (SELECT COUNT(*) FROM replies WHERE replies.question_id = questions.id) AS reply_count"
)

// Store is a gorm backed forum.Store.
type Store struct {
	db *gorm.DB
}

var _ forum.Store = (*Store)(nil)

// New wraps an opened and migrated database.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB { return s.db }

func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, forum.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return fmt.Errorf("%s: %w", what, forum.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// CreateUser inserts a user; the unique username_key index rejects case variants.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error, "create user")
}

// UserByUsername looks a user up case-insensitively.
func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("username_key = ?", models.UsernameKeyOf(username)).First(&u).Error
	if err != nil {
		return nil, translate(err, "user "+username)
	}
	return &u, nil
}

// UserByID loads a user by id.
func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("user %d", id))
	}
	return &u, nil
}

// ListTopics returns all topics newest first with their question counts.
func (s *Store) ListTopics(ctx context.Context) ([]models.Topic, error) {
	topics := []models.Topic{}
	err := s.db.WithContext(ctx).Model(&models.Topic{}).
		Select(topicColumns).
		Order("topics.created_at DESC, topics.id DESC").
		Find(&topics).Error
	if err != nil {
		return nil, translate(err, "list topics")
	}
	return topics, nil
}

// Topic loads one topic.
func (s *Store) Topic(ctx context.Context, id uint) (*models.Topic, error) {
	var t models.Topic
	err := s.db.WithContext(ctx).Model(&models.Topic{}).
		Select(topicColumns).
		Where("topics.id = ?", id).
		Take(&t).Error
	if err != nil {
		return nil, translate(err, fmt.Sprintf("topic %d", id))
	}
	return &t, nil
}

// CreateTopic inserts a topic.
func (s *Store) CreateTopic(ctx context.Context, t *models.Topic) error {
	return translate(s.db.WithContext(ctx).Create(t).Error, "create topic")
}

// SaveTopic writes title and color.
func (s *Store) SaveTopic(ctx context.Context, t *models.Topic) error {
	res := s.db.WithContext(ctx).Model(&models.Topic{ID: t.ID}).
		Updates(map[string]interface{}{"title": t.Title, "color": t.Color})
	return translate(res.Error, fmt.Sprintf("save topic %d", t.ID))
}

// DeleteTopic removes a topic and reassigns its questions in one transaction.
func (s *Store) DeleteTopic(ctx context.Context, id uint, fallback models.Topic) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Topic{}, id)
		if res.Error != nil {
			return translate(res.Error, fmt.Sprintf("delete topic %d", id))
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("delete topic %d: %w", id, forum.ErrNotFound)
		}

		var orphans int64
		if err := tx.Model(&models.Question{}).Where("topic_id = ?", id).Count(&orphans).Error; err != nil {
			return translate(err, "count topic questions")
		}
		if orphans == 0 {
			return nil
		}

		var target models.Topic
		err := tx.Order("created_at ASC, id ASC").Take(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			target = fallback
			target.ID = 0
			err = tx.Create(&target).Error
		}
		if err != nil {
			return translate(err, "resolve fallback topic")
		}
		err = tx.Model(&models.Question{}).Where("topic_id = ?", id).
			UpdateColumn("topic_id", target.ID).Error
		return translate(err, "reassign questions")
	})
}

// ListQuestions filters and orders questions in SQL.
func (s *Store) ListQuestions(ctx context.Context, q forum.QuestionQuery) ([]models.Question, error) {
	tx := s.db.WithContext(ctx).Model(&models.Question{}).Select(questionColumns)
	if !q.Topic.All() {
		tx = tx.Where("questions.topic_id = ?", q.Topic.TopicID)
	}
	search := strings.TrimSpace(q.Search)
	// SQLite's LOWER folds ASCII only; there the text match runs in Go
	matchInGo := search != "" && s.db.Dialector.Name() == "sqlite"
	if search != "" && !matchInGo {
		like := "%" + escapeLike(strings.ToLower(search)) + "%"
		tx = tx.Where("(LOWER(questions.title) LIKE ? ESCAPE '!' OR LOWER(questions.body) LIKE ? ESCAPE '!')", like, like)
	}
	switch q.Sort {
	case forum.SortOldest:
		tx = tx.Order("questions.created_at ASC, questions.id ASC")
	case forum.SortMostReplies:
		tx = tx.Order("reply_count DESC, questions.id ASC")
	default:
		tx = tx.Order("questions.created_at DESC, questions.id DESC")
	}

	questions := []models.Question{}
	if err := tx.Find(&questions).Error; err != nil {
		return nil, translate(err, "list questions")
	}
	if matchInGo {
		kept := questions[:0]
		for _, question := range questions {
			if q.Matches(question) {
				kept = append(kept, question)
			}
		}
		questions = kept
	}
	return questions, nil
}

// Question loads one question, optionally with its replies oldest first.
func (s *Store) Question(ctx context.Context, id uint, withReplies bool) (*models.Question, error) {
	tx := s.db.WithContext(ctx).Model(&models.Question{}).Select(questionColumns)
	if withReplies {
		tx = tx.Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("replies.created_at ASC, replies.id ASC")
		})
	}
	var q models.Question
	if err := tx.Where("questions.id = ?", id).Take(&q).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("question %d", id))
	}
	return &q, nil
}

// CreateQuestion inserts a question without touching associations.
func (s *Store) CreateQuestion(ctx context.Context, q *models.Question) error {
	return translate(s.db.WithContext(ctx).Omit(clause.Associations).Create(q).Error, "create question")
}

// SaveQuestion writes the mutable question fields.
func (s *Store) SaveQuestion(ctx context.Context, q *models.Question) error {
	q.UpdatedAt = time.Now()
	res := s.db.WithContext(ctx).Model(&models.Question{ID: q.ID}).Updates(map[string]interface{}{
		"title":      q.Title,
		"body":       q.Body,
		"topic_id":   q.TopicID,
		"updated_at": q.UpdatedAt,
	})
	return translate(res.Error, fmt.Sprintf("save question %d", q.ID))
}

// DeleteQuestion removes a question and its replies in one transaction.
func (s *Store) DeleteQuestion(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&models.Reply{}).Error; err != nil {
			return translate(err, fmt.Sprintf("delete replies of question %d", id))
		}
		res := tx.Delete(&models.Question{}, id)
		if res.Error != nil {
			return translate(res.Error, fmt.Sprintf("delete question %d", id))
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("delete question %d: %w", id, forum.ErrNotFound)
		}
		return nil
	})
}

// Reply loads one reply.
func (s *Store) Reply(ctx context.Context, id uint) (*models.Reply, error) {
	var r models.Reply
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("reply %d", id))
	}
	return &r, nil
}

// CreateReply inserts a reply if its question still exists.
func (s *Store) CreateReply(ctx context.Context, r *models.Reply) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Question{}).Where("id = ?", r.QuestionID).Count(&n).Error; err != nil {
			return translate(err, "check question")
		}
		if n == 0 {
			return fmt.Errorf("question %d: %w", r.QuestionID, forum.ErrNotFound)
		}
		return translate(tx.Create(r).Error, "create reply")
	})
}

// SaveReply writes the reply body.
func (s *Store) SaveReply(ctx context.Context, r *models.Reply) error {
	r.UpdatedAt = time.Now()
	res := s.db.WithContext(ctx).Model(&models.Reply{ID: r.ID}).Updates(map[string]interface{}{
		"body":       r.Body,
		"updated_at": r.UpdatedAt,
	})
	return translate(res.Error, fmt.Sprintf("save reply %d", r.ID))
}

// DeleteReply removes one reply.
func (s *Store) DeleteReply(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Reply{}, id)
	if res.Error != nil {
		return translate(res.Error, fmt.Sprintf("delete reply %d", id))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete reply %d: %w", id, forum.ErrNotFound)
	}
	return nil
}

// Stats counts every entity table.
func (s *Store) Stats(ctx context.Context) (forum.Stats, error) {
	var st forum.Stats
	db := s.db.WithContext(ctx)
	counts := []struct {
		model interface{}
		dst   *int64
	}{
		{&models.User{}, &st.Users},
		{&models.Topic{}, &st.Topics},
		{&models.Question{}, &st.Questions},
		{&models.Reply{}, &st.Replies},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return forum.Stats{}, translate(err, "stats")
		}
	}
	return st, nil
}

// isUniqueViolation catches drivers whose errors gorm does not translate.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "duplicate key value")
}

// escapeLike makes LIKE wildcards in user input match literally; '!' is the escape character.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
