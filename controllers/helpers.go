package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"go.uber.org/zap"

	"github.com/cppla/qforum/forum"
	"github.com/cppla/qforum/middleware"
	"github.com/cppla/qforum/utils"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("notblank", validators.NotBlank)
	}
}

// respondError maps a domain error onto the HTTP status and code of its kind.
// Anything unclassified is logged and hidden behind a 500.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, forum.ErrValidation):
		utils.Error(ctx, http.StatusBadRequest, 40000, forum.Message(err))
	case errors.Is(err, forum.ErrAuth):
		utils.Error(ctx, http.StatusUnauthorized, 40100, forum.Message(err))
	case errors.Is(err, forum.ErrForbidden):
		utils.Error(ctx, http.StatusForbidden, 40300, forum.Message(err))
	case errors.Is(err, forum.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40400, forum.Message(err))
	case errors.Is(err, forum.ErrConflict):
		utils.Error(ctx, http.StatusConflict, 40900, forum.Message(err))
	default:
		utils.Logger.Error("request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.String("request_id", ctx.GetString(middleware.ContextRequestIDKey)),
			zap.Error(err),
		)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}

// bindJSON decodes the request body. An empty body decodes as an empty
// object. Syntax errors and failed binding rules both answer 400;
// invalidMsg is used for the latter.
func bindJSON(ctx *gin.Context, req interface{}, invalidMsg string) bool {
	err := ctx.ShouldBindJSON(req)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		utils.Error(ctx, http.StatusBadRequest, 40001, invalidMsg)
	} else {
		utils.Error(ctx, http.StatusBadRequest, 40002, "Invalid request body")
	}
	return false
}

// parseID reads a numeric path parameter. Ids that cannot exist answer 404.
func parseID(ctx *gin.Context, name, notFoundMsg string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusNotFound, 40400, notFoundMsg)
		return 0, false
	}
	return uint(id), true
}
