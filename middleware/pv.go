package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/qforum/utils"
)

// PageViewStore persists view counters.
type PageViewStore interface {
	RecordPageView(ctx context.Context, path string) error
}

const questionRoute = "/api/questions/:id"

// QuestionPath is the path a view of question id is recorded under.
func QuestionPath(id string) string {
	return "/api/questions/" + id
}

// PageViewRecorder counts successful reads of a single question.
func PageViewRecorder(store PageViewStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 400 {
			return
		}
		if c.FullPath() != questionRoute {
			return
		}
		// "007" and "7" are the same question
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			return
		}
		path := QuestionPath(strconv.FormatUint(id, 10))
		if err := store.RecordPageView(c.Request.Context(), path); err != nil {
			utils.Sugar.Warnf("record page view path=%s err=%v", path, err)
		}
	}
}
