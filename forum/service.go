package forum

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/cppla/qforum/models"
	"github.com/cppla/qforum/utils"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Service implements topic, question and reply operations on top of a Store.
type Service struct {
	store Store
}

// NewService creates a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// TopicInput carries the optional fields of a topic create or update.
type TopicInput struct {
	Title *string
	Color *string
}

// QuestionInput carries the optional fields of a question create or update.
type QuestionInput struct {
	Title   *string
	Body    *string
	TopicID *uint
}

// ListTopics returns every topic, newest first.
func (s *Service) ListTopics(ctx context.Context) ([]models.Topic, error) {
	return s.store.ListTopics(ctx)
}

// CreateTopic adds a topic. No ownership is recorded.
func (s *Service) CreateTopic(ctx context.Context, id Identity, in TopicInput) (*models.Topic, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	title := cleanTitle(in.Title)
	if title == "" {
		return nil, ValidationError("Title required")
	}
	color, err := cleanColor(in.Color)
	if err != nil {
		return nil, err
	}
	if color == "" {
		color = models.DefaultTopicColor
	}
	t := &models.Topic{Title: title, Color: color}
	if err := s.store.CreateTopic(ctx, t); err != nil {
		return nil, fmt.Errorf("create topic: %w", err)
	}
	return t, nil
}

// UpdateTopic changes the supplied fields of a topic.
func (s *Service) UpdateTopic(ctx context.Context, id Identity, topicID uint, in TopicInput) (*models.Topic, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	t, err := s.topic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if title := cleanTitle(in.Title); title != "" {
		t.Title = title
	}
	color, err := cleanColor(in.Color)
	if err != nil {
		return nil, err
	}
	if color != "" {
		t.Color = color
	}
	if err := s.store.SaveTopic(ctx, t); err != nil {
		return nil, fmt.Errorf("update topic %d: %w", topicID, err)
	}
	return t, nil
}

// DeleteTopic removes a topic and reassigns its questions.
func (s *Service) DeleteTopic(ctx context.Context, id Identity, topicID uint) error {
	if err := requireIdentity(id); err != nil {
		return err
	}
	if err := s.store.DeleteTopic(ctx, topicID, FallbackTopic()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return NotFoundError("Not found")
		}
		return fmt.Errorf("delete topic %d: %w", topicID, err)
	}
	return nil
}

// ListQuestions returns the questions matching q.
func (s *Service) ListQuestions(ctx context.Context, q QuestionQuery) ([]models.Question, error) {
	q.Search = searchTerm(q.Search)
	return s.store.ListQuestions(ctx, q)
}

// GetQuestion returns a question with its replies, oldest first.
func (s *Service) GetQuestion(ctx context.Context, questionID uint) (*models.Question, error) {
	q, err := s.store.Question(ctx, questionID, true)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NotFoundError("Not found")
		}
		return nil, fmt.Errorf("load question %d: %w", questionID, err)
	}
	if q.Replies == nil {
		q.Replies = []models.Reply{}
	}
	return q, nil
}

// CreateQuestion posts a question as the caller.
func (s *Service) CreateQuestion(ctx context.Context, id Identity, in QuestionInput) (*models.Question, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	title := cleanTitle(in.Title)
	body := cleanBody(in.Body)
	if title == "" || body == "" || in.TopicID == nil || *in.TopicID == 0 {
		return nil, ValidationError("Missing fields")
	}
	if err := s.topicExists(ctx, *in.TopicID); err != nil {
		return nil, err
	}
	q := &models.Question{
		Title:   title,
		Body:    body,
		TopicID: *in.TopicID,
		Author:  id.Username,
		Replies: []models.Reply{},
	}
	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// UpdateQuestion changes the supplied fields of the caller's question.
func (s *Service) UpdateQuestion(ctx context.Context, id Identity, questionID uint, in QuestionInput) (*models.Question, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	q, err := s.question(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if err := requireAuthor(id, q.Author); err != nil {
		return nil, err
	}
	if title := cleanTitle(in.Title); title != "" {
		q.Title = title
	}
	if body := cleanBody(in.Body); body != "" {
		q.Body = body
	}
	if in.TopicID != nil && *in.TopicID != 0 && *in.TopicID != q.TopicID {
		if err := s.topicExists(ctx, *in.TopicID); err != nil {
			return nil, err
		}
		q.TopicID = *in.TopicID
	}
	if err := s.store.SaveQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("update question %d: %w", questionID, err)
	}
	return q, nil
}

// DeleteQuestion removes the caller's question together with its replies.
func (s *Service) DeleteQuestion(ctx context.Context, id Identity, questionID uint) error {
	if err := requireIdentity(id); err != nil {
		return err
	}
	q, err := s.question(ctx, questionID)
	if err != nil {
		return err
	}
	if err := requireAuthor(id, q.Author); err != nil {
		return err
	}
	if err := s.store.DeleteQuestion(ctx, questionID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return NotFoundError("Not found")
		}
		return fmt.Errorf("delete question %d: %w", questionID, err)
	}
	return nil
}

// AddReply appends a reply by the caller to a question.
func (s *Service) AddReply(ctx context.Context, id Identity, questionID uint, body string) (*models.Reply, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if _, err := s.store.Question(ctx, questionID, false); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NotFoundError("Question not found")
		}
		return nil, fmt.Errorf("load question %d: %w", questionID, err)
	}
	clean := cleanBody(&body)
	if clean == "" {
		return nil, ValidationError("Body required")
	}
	r := &models.Reply{QuestionID: questionID, Body: clean, Author: id.Username}
	if err := s.store.CreateReply(ctx, r); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NotFoundError("Question not found")
		}
		return nil, fmt.Errorf("create reply: %w", err)
	}
	return r, nil
}

// UpdateReply replaces the body of the caller's reply.
func (s *Service) UpdateReply(ctx context.Context, id Identity, replyID uint, body *string) (*models.Reply, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	r, err := s.reply(ctx, replyID)
	if err != nil {
		return nil, err
	}
	if err := requireAuthor(id, r.Author); err != nil {
		return nil, err
	}
	if clean := cleanBody(body); clean != "" {
		r.Body = clean
	}
	if err := s.store.SaveReply(ctx, r); err != nil {
		return nil, fmt.Errorf("update reply %d: %w", replyID, err)
	}
	return r, nil
}

// DeleteReply removes the caller's reply.
func (s *Service) DeleteReply(ctx context.Context, id Identity, replyID uint) error {
	if err := requireIdentity(id); err != nil {
		return err
	}
	r, err := s.reply(ctx, replyID)
	if err != nil {
		return err
	}
	if err := requireAuthor(id, r.Author); err != nil {
		return err
	}
	if err := s.store.DeleteReply(ctx, replyID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return NotFoundError("Not found")
		}
		return fmt.Errorf("delete reply %d: %w", replyID, err)
	}
	return nil
}

// Stats returns aggregate counts.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.store.Stats(ctx)
}

func (s *Service) topic(ctx context.Context, topicID uint) (*models.Topic, error) {
	t, err := s.store.Topic(ctx, topicID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NotFoundError("Not found")
		}
		return nil, fmt.Errorf("load topic %d: %w", topicID, err)
	}
	return t, nil
}

func (s *Service) topicExists(ctx context.Context, topicID uint) error {
	if _, err := s.store.Topic(ctx, topicID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ValidationError("Unknown topic")
		}
		return fmt.Errorf("load topic %d: %w", topicID, err)
	}
	return nil
}

func (s *Service) question(ctx context.Context, questionID uint) (*models.Question, error) {
	q, err := s.store.Question(ctx, questionID, false)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NotFoundError("Not found")
		}
		return nil, fmt.Errorf("load question %d: %w", questionID, err)
	}
	return q, nil
}

func (s *Service) reply(ctx context.Context, replyID uint) (*models.Reply, error) {
	r, err := s.store.Reply(ctx, replyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NotFoundError("Not found")
		}
		return nil, fmt.Errorf("load reply %d: %w", replyID, err)
	}
	return r, nil
}

func cleanTitle(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(utils.SanitizePlain(strings.TrimSpace(*s)))
}

func cleanBody(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(utils.Sanitize(strings.TrimSpace(*s)))
}

// searchTerm escapes the term the way titles and bodies are escaped when
// stored, so "Q&A" finds "Q&amp;A".
func searchTerm(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if term := strings.TrimSpace(utils.SanitizePlain(raw)); term != "" {
		return term
	}
	// a term made only of markup searches for its escaped text
	return html.EscapeString(raw)
}

func cleanColor(s *string) (string, error) {
	if s == nil {
		return "", nil
	}
	c := strings.TrimSpace(*s)
	if c == "" {
		return "", nil
	}
	if !hexColor.MatchString(c) {
		return "", ValidationError("Invalid color")
	}
	return c, nil
}
