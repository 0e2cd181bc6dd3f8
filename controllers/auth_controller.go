package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/qforum/forum"
	"github.com/cppla/qforum/middleware"
	"github.com/cppla/qforum/utils"
)

// AuthController handles registration, login and the current user.
type AuthController struct {
	auth *forum.AuthService
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(auth *forum.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

type registerRequest struct {
	Username string `json:"username" binding:"notblank"`
	Password string `json:"password" binding:"notblank"`
}

// Login has no binding rules: missing credentials are simply wrong credentials.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a new user account and returns a token.
func (a *AuthController) Register(ctx *gin.Context) {
	var req registerRequest
	if !bindJSON(ctx, &req, "Invalid username or password") {
		return
	}
	session, err := a.auth.Register(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Sugar.Infof("user registered id=%d username=%s", session.User.ID, session.User.Username)
	utils.Success(ctx, session)
}

// Login authenticates a user and returns a fresh token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req loginRequest
	if !bindJSON(ctx, &req, "Invalid credentials") {
		return
	}
	session, err := a.auth.Login(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, session)
}

// Me returns the public profile of the token's user.
func (a *AuthController) Me(ctx *gin.Context) {
	user, err := a.auth.Me(ctx.Request.Context(), middleware.CurrentIdentity(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, user)
}
