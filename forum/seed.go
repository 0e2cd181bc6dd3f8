package forum

import (
	"context"
	"errors"
	"fmt"

	"github.com/cppla/qforum/models"
	"github.com/cppla/qforum/utils"
)

// Demo account created by SeedDemo.
const (
	DemoUsername = "demo"
	DemoPassword = "demo1234"
)

var demoTopics = []models.Topic{
	{Title: "JavaScript", Color: "#8aa2ff"},
	{Title: "Python", Color: "#00d1b2"},
	{Title: "Web", Color: "#f6c945"},
}

// SeedDemo fills empty collections with demo content. Collections that
// already hold data are left alone, so it is safe to call on every start.
func SeedDemo(ctx context.Context, store Store) error {
	stats, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	if stats.Topics == 0 {
		for _, t := range demoTopics {
			t := t
			if err := store.CreateTopic(ctx, &t); err != nil {
				return fmt.Errorf("seed topic %s: %w", t.Title, err)
			}
		}
	}

	if stats.Users == 0 {
		hash, err := utils.HashPassword(DemoPassword)
		if err != nil {
			return fmt.Errorf("seed: hash password: %w", err)
		}
		if err := store.CreateUser(ctx, &models.User{Username: DemoUsername, PasswordHash: hash}); err != nil && !errors.Is(err, ErrConflict) {
			return fmt.Errorf("seed user: %w", err)
		}
	}

	if stats.Questions > 0 {
		return nil
	}
	topics, err := store.ListTopics(ctx)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	var webID uint
	for _, t := range topics {
		if t.Title == "Web" {
			webID = t.ID
		}
	}
	if webID == 0 && len(topics) > 0 {
		webID = topics[len(topics)-1].ID
	}
	if webID == 0 {
		return nil
	}
	q := &models.Question{
		Title:   "How do I attach CSS to an HTML page?",
		Body:    "What is the basic way to connect a stylesheet to an HTML page?",
		TopicID: webID,
		Author:  DemoUsername,
	}
	if err := store.CreateQuestion(ctx, q); err != nil {
		return fmt.Errorf("seed question: %w", err)
	}
	r := &models.Reply{
		QuestionID: q.ID,
		Body:       "Put a link element with rel=stylesheet and href=style.css inside the head section.",
		Author:     DemoUsername,
	}
	if err := store.CreateReply(ctx, r); err != nil {
		return fmt.Errorf("seed reply: %w", err)
	}
	return nil
}
