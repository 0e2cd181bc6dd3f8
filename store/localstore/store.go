// Package localstore implements forum.Store for the single-user offline
// variant. Each collection is one JSON document under a fixed key in an
// embedded BadgerDB; replies are embedded in their question.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/cppla/qforum/forum"
	"github.com/cppla/qforum/models"
)

// Fixed storage keys.
const (
	KeyUsers      = "qf_users"
	KeyTopics     = "qf_topics"
	KeyQuestions  = "qf_questions"
	KeySession    = "qf_session"
	KeyOnboarding = "qf_onboarding_hide"
	KeySecret     = "qf_secret"
	KeySeq        = "qf_seq"
)

const maxTxnRetries = 3

// Options configures Open.
type Options struct {
	// Path is the directory for database files. Ignored when InMemory is set.
	Path string
	// InMemory keeps everything in RAM; used by tests.
	InMemory bool
}

// Store is a Badger backed forum.Store.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

var _ forum.Store = (*Store)(nil)

// Open opens (creating if needed) a local store.
func Open(opts Options) (*Store, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Path == "" {
			return nil, errors.New("local store path is required")
		}
		if err := os.MkdirAll(opts.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create local store directory %s: %w", opts.Path, err)
		}
		bopts = badger.DefaultOptions(opts.Path).WithSyncWrites(true)
	}
	bopts = bopts.WithNumVersionsToKeep(1).WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type userRecord struct {
	ID           uint      `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

type topicRecord struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}

type replyRecord struct {
	ID        uint      `json:"id"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type questionRecord struct {
	ID        uint          `json:"id"`
	Title     string        `json:"title"`
	Body      string        `json:"body"`
	TopicID   uint          `json:"topicId"`
	Author    string        `json:"author"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Replies   []replyRecord `json:"replies"`
}

// state is the whole forum as held under the collection keys.
type state struct {
	users     []userRecord
	topics    []topicRecord
	questions []questionRecord
	seq       uint64
}

func (st *state) nextID() uint {
	st.seq++
	return uint(st.seq)
}

func (st *state) questionIndex(id uint) int {
	for i := range st.questions {
		if st.questions[i].ID == id {
			return i
		}
	}
	return -1
}

func (st *state) topicIndex(id uint) int {
	for i := range st.topics {
		if st.topics[i].ID == id {
			return i
		}
	}
	return -1
}

func (st *state) findReply(id uint) (qi, ri int) {
	for i := range st.questions {
		for j := range st.questions[i].Replies {
			if st.questions[i].Replies[j].ID == id {
				return i, j
			}
		}
	}
	return -1, -1
}

func getJSON(txn *badger.Txn, key string, v interface{}) (bool, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
	if err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func setJSON(txn *badger.Txn, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := txn.Set([]byte(key), b); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func loadState(txn *badger.Txn) (*state, error) {
	st := &state{}
	if _, err := getJSON(txn, KeyUsers, &st.users); err != nil {
		return nil, err
	}
	if _, err := getJSON(txn, KeyTopics, &st.topics); err != nil {
		return nil, err
	}
	if _, err := getJSON(txn, KeyQuestions, &st.questions); err != nil {
		return nil, err
	}
	if _, err := getJSON(txn, KeySeq, &st.seq); err != nil {
		return nil, err
	}
	return st, nil
}

func saveState(txn *badger.Txn, st *state) error {
	if err := setJSON(txn, KeyUsers, st.users); err != nil {
		return err
	}
	if err := setJSON(txn, KeyTopics, st.topics); err != nil {
		return err
	}
	if err := setJSON(txn, KeyQuestions, st.questions); err != nil {
		return err
	}
	return setJSON(txn, KeySeq, st.seq)
}

// read runs fn over a snapshot of the forum.
func (s *Store) read(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		st, err := loadState(txn)
		if err != nil {
			return err
		}
		return fn(st)
	})
}

// write runs fn as one read-modify-write transaction. Nothing is stored when fn fails.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	var err error
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			st, err := loadState(txn)
			if err != nil {
				return err
			}
			if err := fn(st); err != nil {
				return err
			}
			return saveState(txn, st)
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func notFound(what string, id uint) error {
	return fmt.Errorf("%s %d: %w", what, id, forum.ErrNotFound)
}

// CreateUser inserts a user, rejecting case-insensitive duplicates.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return s.write(ctx, func(st *state) error {
		key := models.UsernameKeyOf(u.Username)
		for _, r := range st.users {
			if models.UsernameKeyOf(r.Username) == key {
				return fmt.Errorf("user %s: %w", u.Username, forum.ErrConflict)
			}
		}
		u.ID = st.nextID()
		u.UsernameKey = key
		if u.CreatedAt.IsZero() {
			u.CreatedAt = s.now()
		}
		st.users = append(st.users, userRecord{
			ID:           u.ID,
			Username:     u.Username,
			PasswordHash: u.PasswordHash,
			CreatedAt:    u.CreatedAt,
		})
		return nil
	})
}

// UserByUsername looks a user up case-insensitively.
func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var out *models.User
	err := s.read(ctx, func(st *state) error {
		key := models.UsernameKeyOf(username)
		for _, r := range st.users {
			if models.UsernameKeyOf(r.Username) == key {
				out = r.model()
				return nil
			}
		}
		return fmt.Errorf("user %s: %w", username, forum.ErrNotFound)
	})
	return out, err
}

// UserByID loads a user by id.
func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var out *models.User
	err := s.read(ctx, func(st *state) error {
		for _, r := range st.users {
			if r.ID == id {
				out = r.model()
				return nil
			}
		}
		return notFound("user", id)
	})
	return out, err
}

// ListTopics returns all topics newest first with their question counts.
func (s *Store) ListTopics(ctx context.Context) ([]models.Topic, error) {
	topics := []models.Topic{}
	err := s.read(ctx, func(st *state) error {
		for _, r := range st.topics {
			topics = append(topics, st.topicModel(r))
		}
		return nil
	})
	sort.SliceStable(topics, func(i, j int) bool {
		if !topics[i].CreatedAt.Equal(topics[j].CreatedAt) {
			return topics[i].CreatedAt.After(topics[j].CreatedAt)
		}
		return topics[i].ID > topics[j].ID
	})
	return topics, err
}

// Topic loads one topic.
func (s *Store) Topic(ctx context.Context, id uint) (*models.Topic, error) {
	var out *models.Topic
	err := s.read(ctx, func(st *state) error {
		i := st.topicIndex(id)
		if i < 0 {
			return notFound("topic", id)
		}
		t := st.topicModel(st.topics[i])
		out = &t
		return nil
	})
	return out, err
}

// CreateTopic inserts a topic.
func (s *Store) CreateTopic(ctx context.Context, t *models.Topic) error {
	return s.write(ctx, func(st *state) error {
		st.addTopic(t, s.now())
		return nil
	})
}

// SaveTopic writes title and color.
func (s *Store) SaveTopic(ctx context.Context, t *models.Topic) error {
	return s.write(ctx, func(st *state) error {
		i := st.topicIndex(t.ID)
		if i < 0 {
			return notFound("topic", t.ID)
		}
		st.topics[i].Title = t.Title
		st.topics[i].Color = t.Color
		return nil
	})
}

// DeleteTopic removes a topic and reassigns its questions.
func (s *Store) DeleteTopic(ctx context.Context, id uint, fallback models.Topic) error {
	return s.write(ctx, func(st *state) error {
		i := st.topicIndex(id)
		if i < 0 {
			return notFound("topic", id)
		}
		st.topics = append(st.topics[:i], st.topics[i+1:]...)

		orphaned := false
		for _, q := range st.questions {
			if q.TopicID == id {
				orphaned = true
				break
			}
		}
		if !orphaned {
			return nil
		}

		var target uint
		if len(st.topics) == 0 {
			fb := fallback
			fb.ID = 0
			st.addTopic(&fb, s.now())
			target = fb.ID
		} else {
			oldest := st.topics[0]
			for _, t := range st.topics[1:] {
				if t.CreatedAt.Before(oldest.CreatedAt) || (t.CreatedAt.Equal(oldest.CreatedAt) && t.ID < oldest.ID) {
					oldest = t
				}
			}
			target = oldest.ID
		}
		for qi := range st.questions {
			if st.questions[qi].TopicID == id {
				st.questions[qi].TopicID = target
			}
		}
		return nil
	})
}

// ListQuestions filters and orders questions in memory.
func (s *Store) ListQuestions(ctx context.Context, q forum.QuestionQuery) ([]models.Question, error) {
	var all []models.Question
	err := s.read(ctx, func(st *state) error {
		all = make([]models.Question, 0, len(st.questions))
		for _, r := range st.questions {
			all = append(all, r.model(false))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return q.Apply(all), nil
}

// Question loads one question, optionally with its replies oldest first.
func (s *Store) Question(ctx context.Context, id uint, withReplies bool) (*models.Question, error) {
	var out *models.Question
	err := s.read(ctx, func(st *state) error {
		i := st.questionIndex(id)
		if i < 0 {
			return notFound("question", id)
		}
		q := st.questions[i].model(withReplies)
		out = &q
		return nil
	})
	return out, err
}

// CreateQuestion inserts a question.
func (s *Store) CreateQuestion(ctx context.Context, q *models.Question) error {
	return s.write(ctx, func(st *state) error {
		now := s.now()
		q.ID = st.nextID()
		q.CreatedAt, q.UpdatedAt = now, now
		st.questions = append(st.questions, questionRecord{
			ID:        q.ID,
			Title:     q.Title,
			Body:      q.Body,
			TopicID:   q.TopicID,
			Author:    q.Author,
			CreatedAt: now,
			UpdatedAt: now,
			Replies:   []replyRecord{},
		})
		return nil
	})
}

// SaveQuestion writes the mutable question fields.
func (s *Store) SaveQuestion(ctx context.Context, q *models.Question) error {
	return s.write(ctx, func(st *state) error {
		i := st.questionIndex(q.ID)
		if i < 0 {
			return notFound("question", q.ID)
		}
		q.UpdatedAt = s.now()
		r := &st.questions[i]
		r.Title, r.Body, r.TopicID, r.UpdatedAt = q.Title, q.Body, q.TopicID, q.UpdatedAt
		return nil
	})
}

// DeleteQuestion removes a question; its embedded replies go with it.
func (s *Store) DeleteQuestion(ctx context.Context, id uint) error {
	return s.write(ctx, func(st *state) error {
		i := st.questionIndex(id)
		if i < 0 {
			return notFound("question", id)
		}
		st.questions = append(st.questions[:i], st.questions[i+1:]...)
		return nil
	})
}

// Reply loads one reply.
func (s *Store) Reply(ctx context.Context, id uint) (*models.Reply, error) {
	var out *models.Reply
	err := s.read(ctx, func(st *state) error {
		qi, ri := st.findReply(id)
		if qi < 0 {
			return notFound("reply", id)
		}
		r := st.questions[qi].Replies[ri].model(st.questions[qi].ID)
		out = &r
		return nil
	})
	return out, err
}

// CreateReply appends a reply to its question.
func (s *Store) CreateReply(ctx context.Context, r *models.Reply) error {
	return s.write(ctx, func(st *state) error {
		i := st.questionIndex(r.QuestionID)
		if i < 0 {
			return notFound("question", r.QuestionID)
		}
		now := s.now()
		r.ID = st.nextID()
		r.CreatedAt, r.UpdatedAt = now, now
		st.questions[i].Replies = append(st.questions[i].Replies, replyRecord{
			ID:        r.ID,
			Body:      r.Body,
			Author:    r.Author,
			CreatedAt: now,
			UpdatedAt: now,
		})
		return nil
	})
}

// SaveReply writes the reply body.
func (s *Store) SaveReply(ctx context.Context, r *models.Reply) error {
	return s.write(ctx, func(st *state) error {
		qi, ri := st.findReply(r.ID)
		if qi < 0 {
			return notFound("reply", r.ID)
		}
		r.UpdatedAt = s.now()
		rec := &st.questions[qi].Replies[ri]
		rec.Body, rec.UpdatedAt = r.Body, r.UpdatedAt
		return nil
	})
}

// DeleteReply removes one reply from its question.
func (s *Store) DeleteReply(ctx context.Context, id uint) error {
	return s.write(ctx, func(st *state) error {
		qi, ri := st.findReply(id)
		if qi < 0 {
			return notFound("reply", id)
		}
		replies := st.questions[qi].Replies
		st.questions[qi].Replies = append(replies[:ri], replies[ri+1:]...)
		return nil
	})
}

// Stats counts every collection.
func (s *Store) Stats(ctx context.Context) (forum.Stats, error) {
	var out forum.Stats
	err := s.read(ctx, func(st *state) error {
		out.Users = int64(len(st.users))
		out.Topics = int64(len(st.topics))
		out.Questions = int64(len(st.questions))
		for _, q := range st.questions {
			out.Replies += int64(len(q.Replies))
		}
		return nil
	})
	return out, err
}

func (st *state) addTopic(t *models.Topic, now time.Time) {
	t.ID = st.nextID()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	st.topics = append(st.topics, topicRecord{ID: t.ID, Title: t.Title, Color: t.Color, CreatedAt: t.CreatedAt})
}

func (st *state) topicModel(r topicRecord) models.Topic {
	t := models.Topic{ID: r.ID, Title: r.Title, Color: r.Color, CreatedAt: r.CreatedAt}
	for _, q := range st.questions {
		if q.TopicID == r.ID {
			t.QuestionCount++
		}
	}
	return t
}

func (r userRecord) model() *models.User {
	return &models.User{
		ID:           r.ID,
		Username:     r.Username,
		UsernameKey:  models.UsernameKeyOf(r.Username),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

func (r questionRecord) model(withReplies bool) models.Question {
	q := models.Question{
		ID:         r.ID,
		Title:      r.Title,
		Body:       r.Body,
		TopicID:    r.TopicID,
		Author:     r.Author,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		ReplyCount: int64(len(r.Replies)),
	}
	if withReplies {
		q.Replies = make([]models.Reply, 0, len(r.Replies))
		for _, rr := range r.Replies {
			q.Replies = append(q.Replies, rr.model(r.ID))
		}
	}
	return q
}

func (r replyRecord) model(questionID uint) models.Reply {
	return models.Reply{
		ID:         r.ID,
		QuestionID: questionID,
		Body:       r.Body,
		Author:     r.Author,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}
