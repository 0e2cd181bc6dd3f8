package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/qforum/forum"
	"github.com/cppla/qforum/middleware"
	"github.com/cppla/qforum/utils"
)

// QuestionController manages questions and their replies.
type QuestionController struct {
	forum *forum.Service
	cache *utils.Cache
}

// NewQuestionController creates a new QuestionController instance.
func NewQuestionController(svc *forum.Service, cache *utils.Cache) *QuestionController {
	return &QuestionController{forum: svc, cache: cache}
}

type questionRequest struct {
	Title   *string `json:"title"`
	Body    *string `json:"body"`
	TopicID *uint   `json:"topicId"`
	// topic_id is accepted as an alias of topicId
	TopicIDAlt *uint `json:"topic_id"`
}

func (r questionRequest) input() forum.QuestionInput {
	in := forum.QuestionInput{Title: r.Title, Body: r.Body, TopicID: r.TopicID}
	if in.TopicID == nil {
		in.TopicID = r.TopicIDAlt
	}
	return in
}

type replyRequest struct {
	Body string `json:"body"`
}

// ListQuestions supports q (search), topicId and sort query parameters.
func (q *QuestionController) ListQuestions(ctx *gin.Context) {
	sortOrder, err := forum.ParseSortOrder(ctx.Query("sort"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	topic, err := forum.ParseTopicFilter(ctx.Query("topicId"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	query := forum.QuestionQuery{
		Search: strings.TrimSpace(ctx.Query("q")),
		Topic:  topic,
		Sort:   sortOrder,
	}

	cacheable := query.Search == ""
	key := questionListKey(query)
	if cacheable {
		if b, ok := q.cache.GetBytes(key); ok {
			ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
			return
		}
	}

	questions, err := q.forum.ListQuestions(ctx.Request.Context(), query)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if cacheable {
		q.cache.SetJSON(key, questions)
	}
	utils.Success(ctx, questions)
}

// GetQuestion returns one question with its replies, oldest first.
func (q *QuestionController) GetQuestion(ctx *gin.Context) {
	id, ok := parseID(ctx, "id", "Question not found")
	if !ok {
		return
	}
	key := questionDetailKey(id)
	if b, ok := q.cache.GetBytes(key); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}
	question, err := q.forum.GetQuestion(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	q.cache.SetJSON(key, question)
	utils.Success(ctx, question)
}

// CreateQuestion posts a question as the authenticated user.
func (q *QuestionController) CreateQuestion(ctx *gin.Context) {
	var req questionRequest
	if !bindJSON(ctx, &req, "Missing fields") {
		return
	}
	question, err := q.forum.CreateQuestion(ctx.Request.Context(), middleware.CurrentIdentity(ctx), req.input())
	if err != nil {
		respondError(ctx, err)
		return
	}
	q.invalidateLists()
	utils.Success(ctx, question)
}

// UpdateQuestion lets the author change title, body or topic.
func (q *QuestionController) UpdateQuestion(ctx *gin.Context) {
	id, ok := parseID(ctx, "id", "Question not found")
	if !ok {
		return
	}
	var req questionRequest
	if !bindJSON(ctx, &req, "Invalid fields") {
		return
	}
	question, err := q.forum.UpdateQuestion(ctx.Request.Context(), middleware.CurrentIdentity(ctx), id, req.input())
	if err != nil {
		respondError(ctx, err)
		return
	}
	q.invalidateQuestion(id)
	utils.Success(ctx, question)
}

// DeleteQuestion removes a question and its replies.
func (q *QuestionController) DeleteQuestion(ctx *gin.Context) {
	id, ok := parseID(ctx, "id", "Question not found")
	if !ok {
		return
	}
	if err := q.forum.DeleteQuestion(ctx.Request.Context(), middleware.CurrentIdentity(ctx), id); err != nil {
		respondError(ctx, err)
		return
	}
	q.invalidateQuestion(id)
	utils.OK(ctx)
}

// CreateReply appends a reply to a question.
func (q *QuestionController) CreateReply(ctx *gin.Context) {
	id, ok := parseID(ctx, "id", "Question not found")
	if !ok {
		return
	}
	var req replyRequest
	if !bindJSON(ctx, &req, "Body required") {
		return
	}
	reply, err := q.forum.AddReply(ctx.Request.Context(), middleware.CurrentIdentity(ctx), id, req.Body)
	if err != nil {
		respondError(ctx, err)
		return
	}
	q.invalidateQuestion(id)
	utils.Success(ctx, reply)
}

// UpdateReply lets the author change a reply body.
func (q *QuestionController) UpdateReply(ctx *gin.Context) {
	id, ok := parseID(ctx, "id", "Reply not found")
	if !ok {
		return
	}
	var req struct {
		Body *string `json:"body"`
	}
	if !bindJSON(ctx, &req, "Body required") {
		return
	}
	reply, err := q.forum.UpdateReply(ctx.Request.Context(), middleware.CurrentIdentity(ctx), id, req.Body)
	if err != nil {
		respondError(ctx, err)
		return
	}
	q.invalidateQuestion(reply.QuestionID)
	utils.Success(ctx, reply)
}

// DeleteReply removes a reply written by the caller.
func (q *QuestionController) DeleteReply(ctx *gin.Context) {
	id, ok := parseID(ctx, "id", "Reply not found")
	if !ok {
		return
	}
	if err := q.forum.DeleteReply(ctx.Request.Context(), middleware.CurrentIdentity(ctx), id); err != nil {
		respondError(ctx, err)
		return
	}
	// the owning question id is not known here
	q.cache.InvalidateByPrefix(cachePrefixQuestionDetail)
	q.invalidateLists()
	utils.OK(ctx)
}

// invalidateLists drops cached lists; topic counts and reply counts change with them.
func (q *QuestionController) invalidateLists() {
	q.cache.InvalidateByPrefix(cachePrefixQuestionLists)
	q.cache.InvalidateByPrefix(cacheKeyTopics)
}

func (q *QuestionController) invalidateQuestion(id uint) {
	q.cache.Delete(questionDetailKey(id))
	q.invalidateLists()
}
