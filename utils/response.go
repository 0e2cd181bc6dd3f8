package utils

import "github.com/gin-gonic/gin"

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

// Success writes data as the 200 response body.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(200, data)
}

// OK writes the {"ok": true} acknowledgement used by deletes and health checks.
func OK(ctx *gin.Context) {
	ctx.JSON(200, gin.H{"ok": true})
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	ctx.JSON(status, ErrorResponse{Error: message, Code: code})
}
