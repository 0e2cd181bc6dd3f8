package controllers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/qforum/forum"
	"github.com/cppla/qforum/middleware"
	"github.com/cppla/qforum/utils"
)

// ViewCounter reads the counters written by middleware.PageViewRecorder.
type ViewCounter interface {
	PageViews(ctx context.Context, path string) (int64, error)
	ViewsToday(ctx context.Context) (int64, error)
}

// StatsController provides forum statistics such as counts and views.
type StatsController struct {
	forum *forum.Service
	views ViewCounter
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(svc *forum.Service, views ViewCounter) *StatsController {
	return &StatsController{forum: svc, views: views}
}

// GetStats returns aggregate statistics for the forum.
func (s *StatsController) GetStats(ctx *gin.Context) {
	stats, err := s.forum.Stats(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}

	var viewsToday int64
	if s.views != nil {
		if viewsToday, err = s.views.ViewsToday(ctx.Request.Context()); err != nil {
			// Fallback to 0 instead of failing the whole endpoint
			utils.Sugar.Warnf("count today's views: %v", err)
			viewsToday = 0
		}
	}

	utils.Success(ctx, gin.H{
		"user_count":     stats.Users,
		"topic_count":    stats.Topics,
		"question_count": stats.Questions,
		"reply_count":    stats.Replies,
		"views_today":    viewsToday,
	})
}

// GetQuestionStats returns the view and reply counts of one question.
func (s *StatsController) GetQuestionStats(ctx *gin.Context) {
	id, ok := parseID(ctx, "id", "Question not found")
	if !ok {
		return
	}
	question, err := s.forum.GetQuestion(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}

	var views int64
	if s.views != nil {
		views, err = s.views.PageViews(ctx.Request.Context(), middleware.QuestionPath(strconv.FormatUint(uint64(id), 10)))
		if err != nil {
			utils.Sugar.Warnf("count views of question %d: %v", id, err)
			views = 0
		}
	}

	utils.Success(ctx, gin.H{
		"views":       views,
		"reply_count": len(question.Replies),
	})
}
