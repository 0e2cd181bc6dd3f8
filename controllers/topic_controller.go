package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/qforum/forum"
	"github.com/cppla/qforum/middleware"
	"github.com/cppla/qforum/utils"
)

// TopicController manages topics.
type TopicController struct {
	forum *forum.Service
	cache *utils.Cache
}

// NewTopicController creates a new TopicController instance.
func NewTopicController(svc *forum.Service, cache *utils.Cache) *TopicController {
	return &TopicController{forum: svc, cache: cache}
}

type topicRequest struct {
	Title *string `json:"title"`
	Color *string `json:"color" binding:"omitempty,hexcolor"`
}

func (r topicRequest) input() forum.TopicInput {
	return forum.TopicInput{Title: r.Title, Color: r.Color}
}

// ListTopics returns all topics, newest first.
func (t *TopicController) ListTopics(ctx *gin.Context) {
	if b, ok := t.cache.GetBytes(cacheKeyTopics); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}
	topics, err := t.forum.ListTopics(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	t.cache.SetJSON(cacheKeyTopics, topics)
	utils.Success(ctx, topics)
}

// CreateTopic adds a topic.
func (t *TopicController) CreateTopic(ctx *gin.Context) {
	var req topicRequest
	if !bindJSON(ctx, &req, "Invalid color") {
		return
	}
	topic, err := t.forum.CreateTopic(ctx.Request.Context(), middleware.CurrentIdentity(ctx), req.input())
	if err != nil {
		respondError(ctx, err)
		return
	}
	t.cache.InvalidateByPrefix(cacheKeyTopics)
	utils.Success(ctx, topic)
}

// UpdateTopic changes the supplied fields of a topic.
func (t *TopicController) UpdateTopic(ctx *gin.Context) {
	id, ok := parseID(ctx, "id", "Topic not found")
	if !ok {
		return
	}
	var req topicRequest
	if !bindJSON(ctx, &req, "Invalid color") {
		return
	}
	topic, err := t.forum.UpdateTopic(ctx.Request.Context(), middleware.CurrentIdentity(ctx), id, req.input())
	if err != nil {
		respondError(ctx, err)
		return
	}
	t.cache.InvalidateByPrefix(cacheKeyTopics)
	utils.Success(ctx, topic)
}

// DeleteTopic removes a topic; its questions move to another topic.
func (t *TopicController) DeleteTopic(ctx *gin.Context) {
	id, ok := parseID(ctx, "id", "Topic not found")
	if !ok {
		return
	}
	if err := t.forum.DeleteTopic(ctx.Request.Context(), middleware.CurrentIdentity(ctx), id); err != nil {
		respondError(ctx, err)
		return
	}
	t.cache.InvalidateByPrefix(cachePrefix)
	utils.OK(ctx)
}

