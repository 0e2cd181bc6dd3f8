package localstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/qforum/forum"
	"github.com/cppla/qforum/models"
)

func openMem(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}

func TestDataSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(Options{Path: dir})
	require.NoError(t, err)
	topic := &models.Topic{Title: "Go", Color: "#00d1b2"}
	require.NoError(t, s.CreateTopic(ctx, topic))
	q := &models.Question{Title: "t", Body: "b", TopicID: topic.ID, Author: "alice"}
	require.NoError(t, s.CreateQuestion(ctx, q))
	require.NoError(t, s.CreateReply(ctx, &models.Reply{QuestionID: q.ID, Body: "r", Author: "bob"}))
	require.NoError(t, s.SetSession(Session{Token: "tok", UserID: 1, Username: "alice"}))
	secret, err := s.Secret()
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(Options{Path: dir})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Question(ctx, q.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)
	require.Len(t, got.Replies, 1)
	assert.Equal(t, q.ID, got.Replies[0].QuestionID)

	sess, err := s.Session()
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "alice", sess.Username)
	assert.False(t, sess.LoggedInAt.IsZero())

	again, err := s.Secret()
	require.NoError(t, err)
	assert.Equal(t, secret, again, "signing secret is stable across runs")

	// new ids continue after the persisted sequence
	next := &models.Topic{Title: "Rust", Color: models.DefaultTopicColor}
	require.NoError(t, s.CreateTopic(ctx, next))
	assert.Greater(t, next.ID, q.ID)
}

func TestRepliesAreEmbeddedInQuestions(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	q := &models.Question{Title: "t", Body: "b", TopicID: 1, Author: "alice"}
	require.NoError(t, s.CreateQuestion(ctx, q))
	r := &models.Reply{QuestionID: q.ID, Body: "r", Author: "bob"}
	require.NoError(t, s.CreateReply(ctx, r))

	var raw []questionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(KeyQuestions))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &raw) })
	})
	require.NoError(t, err)
	require.Len(t, raw, 1)
	require.Len(t, raw[0].Replies, 1)
	assert.Equal(t, r.ID, raw[0].Replies[0].ID)
}

func TestPasswordHashIsPersisted(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, &models.User{Username: "Alice", PasswordHash: "hash"}))

	u, err := s.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hash", u.PasswordHash)
	assert.Equal(t, "Alice", u.Username)

	err = s.CreateUser(ctx, &models.User{Username: "ALICE", PasswordHash: "x"})
	assert.ErrorIs(t, err, forum.ErrConflict)
}

func TestFailedWriteStoresNothing(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()

	err := s.CreateReply(ctx, &models.Reply{QuestionID: 42, Body: "r", Author: "bob"})
	assert.ErrorIs(t, err, forum.ErrNotFound)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, forum.Stats{}, stats)

	// the sequence did not advance either
	topic := &models.Topic{Title: "Go"}
	require.NoError(t, s.CreateTopic(ctx, topic))
	assert.EqualValues(t, 1, topic.ID)
}

func TestDeleteTopicWithoutQuestionsCreatesNoFallback(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	topic := &models.Topic{Title: "Lonely"}
	require.NoError(t, s.CreateTopic(ctx, topic))

	require.NoError(t, s.DeleteTopic(ctx, topic.ID, forum.FallbackTopic()))
	topics, err := s.ListTopics(ctx)
	require.NoError(t, err)
	assert.Empty(t, topics)
}

func TestSessionAndOnboarding(t *testing.T) {
	s := openMem(t)

	sess, err := s.Session()
	require.NoError(t, err)
	assert.Nil(t, sess)

	require.NoError(t, s.SetSession(Session{Token: "tok", UserID: 7, Username: "bob", LoggedInAt: time.Unix(0, 0)}))
	sess, err = s.Session()
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, uint(7), sess.UserID)

	require.NoError(t, s.ClearSession())
	sess, err = s.Session()
	require.NoError(t, err)
	assert.Nil(t, sess)

	hidden, err := s.OnboardingHidden()
	require.NoError(t, err)
	assert.False(t, hidden)
	require.NoError(t, s.SetOnboardingHidden(true))
	hidden, err = s.OnboardingHidden()
	require.NoError(t, err)
	assert.True(t, hidden)
}

func TestCanceledContext(t *testing.T) {
	s := openMem(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.ListTopics(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.CreateTopic(ctx, &models.Topic{Title: "x"}), context.Canceled)
}
