package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/qforum/config"
	"github.com/cppla/qforum/forum"
	"github.com/cppla/qforum/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{DBDriver: "sqlite", SQLitePath: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return New(db)
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return New(db), mock
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "100!%", escapeLike("100%"))
	assert.Equal(t, "snake!_case", escapeLike("snake_case"))
	assert.Equal(t, "wow!!", escapeLike("wow!"))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil, "x"))
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound, "x"), forum.ErrNotFound)
	assert.ErrorIs(t, translate(gorm.ErrDuplicatedKey, "x"), forum.ErrConflict)
	assert.ErrorIs(t, translate(errors.New("UNIQUE constraint failed: users.username_key"), "x"), forum.ErrConflict)
	assert.ErrorIs(t, translate(errors.New("Error 1062: Duplicate entry 'bob' for key"), "x"), forum.ErrConflict)

	boom := errors.New("boom")
	err := translate(boom, "x")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, forum.ErrNotFound)
}

func TestCreateUserRejectsCaseVariants(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &models.User{Username: "Bob", PasswordHash: "x"}))
	err := s.CreateUser(ctx, &models.User{Username: "bOB", PasswordHash: "y"})
	require.Error(t, err)
	assert.ErrorIs(t, err, forum.ErrConflict)

	u, err := s.UserByUsername(ctx, "BOB")
	require.NoError(t, err)
	assert.Equal(t, "Bob", u.Username)
	assert.Equal(t, "bob", u.UsernameKey)

	_, err = s.UserByID(ctx, 999)
	assert.ErrorIs(t, err, forum.ErrNotFound)
}

func TestCountsAreComputed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	topic := &models.Topic{Title: "Go", Color: models.DefaultTopicColor}
	require.NoError(t, s.CreateTopic(ctx, topic))
	q := &models.Question{Title: "t", Body: "b", TopicID: topic.ID, Author: "alice"}
	require.NoError(t, s.CreateQuestion(ctx, q))
	for i := 0; i < 2; i++ {
		require.NoError(t, s.CreateReply(ctx, &models.Reply{QuestionID: q.ID, Body: "r", Author: "bob"}))
	}

	got, err := s.Topic(ctx, topic.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.QuestionCount)

	loaded, err := s.Question(ctx, q.ID, true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, loaded.ReplyCount)
	require.Len(t, loaded.Replies, 2)
	assert.Less(t, loaded.Replies[0].ID, loaded.Replies[1].ID)

	err = s.CreateReply(ctx, &models.Reply{QuestionID: 999, Body: "r", Author: "bob"})
	assert.ErrorIs(t, err, forum.ErrNotFound)
}

func TestSearchFoldsNonASCIICase(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	topic := &models.Topic{Title: "Langues", Color: models.DefaultTopicColor}
	require.NoError(t, s.CreateTopic(ctx, topic))
	hit := &models.Question{Title: "École", Body: "Ça va?", TopicID: topic.ID, Author: "alice"}
	require.NoError(t, s.CreateQuestion(ctx, hit))
	require.NoError(t, s.CreateQuestion(ctx, &models.Question{Title: "100% sure", Body: "b", TopicID: topic.ID, Author: "alice"}))

	got, err := s.ListQuestions(ctx, forum.QuestionQuery{Search: "école"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, hit.ID, got[0].ID)

	got, err = s.ListQuestions(ctx, forum.QuestionQuery{Search: "ça"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = s.ListQuestions(ctx, forum.QuestionQuery{Search: "_"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPageViews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordPageView(ctx, "/api/questions/1"))
	}
	require.NoError(t, s.RecordPageView(ctx, "/api/questions/2"))

	n, err := s.PageViews(ctx, "/api/questions/1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = s.PageViews(ctx, "/api/questions/404")
	require.NoError(t, err)
	assert.Zero(t, n)

	today, err := s.ViewsToday(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, today)
}

func TestStatsSurfacesDatabaseFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users`").WillReturnError(errors.New("connection refused"))

	_, err := s.Stats(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, forum.ErrNotFound)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserByUsernameNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE username_key = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "username_key", "password_hash", "created_at"}))

	_, err := s.UserByUsername(context.Background(), "Ghost")
	assert.ErrorIs(t, err, forum.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
