package routes

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/qforum/config"
	"github.com/cppla/qforum/controllers"
	"github.com/cppla/qforum/forum"
	"github.com/cppla/qforum/middleware"
	"github.com/cppla/qforum/utils"
)

// ViewStore records and reads question view counters.
type ViewStore interface {
	RecordPageView(ctx context.Context, path string) error
	PageViews(ctx context.Context, path string) (int64, error)
	ViewsToday(ctx context.Context) (int64, error)
}

// Deps are the services the router hands to its controllers.
type Deps struct {
	Config config.AppConfig
	Auth   *forum.AuthService
	Forum  *forum.Service
	Views  ViewStore
	// Cache may be nil or detached; responses are then always computed.
	Cache *utils.Cache
	// AccessLog receives gin access and panic logs. Nil disables them.
	AccessLog *zap.Logger
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if deps.AccessLog != nil {
		r.Use(ginzap.Ginzap(deps.AccessLog, time.RFC3339, true))
		r.Use(ginzap.RecoveryWithZap(deps.AccessLog, true))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.RequestID())

	if cfg.MetricsEnabled {
		metrics := middleware.NewMetrics()
		r.Use(metrics.Middleware())
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	if deps.Views != nil {
		r.Use(middleware.PageViewRecorder(deps.Views))
	}

	authController := controllers.NewAuthController(deps.Auth)
	topicController := controllers.NewTopicController(deps.Forum, deps.Cache)
	questionController := controllers.NewQuestionController(deps.Forum, deps.Cache)
	statsController := controllers.NewStatsController(deps.Forum, deps.Views)
	configController := controllers.NewConfigController(cfg)

	requireAuth := middleware.AuthRequired(deps.Auth)

	api := r.Group("/api")
	api.GET("/health", func(ctx *gin.Context) {
		utils.OK(ctx)
	})

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/me", requireAuth, authController.Me)

	// Public reads
	api.GET("/topics", topicController.ListTopics)
	api.GET("/questions", questionController.ListQuestions)
	api.GET("/questions/:id", questionController.GetQuestion)
	api.GET("/questions/:id/stats", statsController.GetQuestionStats)
	api.GET("/stats", statsController.GetStats)
	api.GET("/config", configController.GetConfig)

	protected := api.Group("")
	protected.Use(requireAuth)
	protected.POST("/topics", topicController.CreateTopic)
	protected.PUT("/topics/:id", topicController.UpdateTopic)
	protected.DELETE("/topics/:id", topicController.DeleteTopic)
	protected.POST("/questions", questionController.CreateQuestion)
	protected.PUT("/questions/:id", questionController.UpdateQuestion)
	protected.DELETE("/questions/:id", questionController.DeleteQuestion)
	protected.POST("/questions/:id/replies", questionController.CreateReply)
	protected.PUT("/replies/:id", questionController.UpdateReply)
	protected.DELETE("/replies/:id", questionController.DeleteReply)

	index := ""
	if cfg.StaticDir != "" {
		if _, err := os.Stat(filepath.Join(cfg.StaticDir, "index.html")); err == nil {
			index = filepath.Join(cfg.StaticDir, "index.html")
			r.Static("/static", cfg.StaticDir)
			r.GET("/", func(c *gin.Context) {
				c.File(index)
			})
		}
	}

	r.NoRoute(func(ctx *gin.Context) {
		path := ctx.Request.URL.Path
		if strings.HasPrefix(path, "/api/") || path == "/api" {
			utils.Error(ctx, http.StatusNotFound, 40400, "Not found")
			return
		}
		if index == "" || strings.HasPrefix(path, "/static/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "Not found")
			return
		}
		// Other paths fall back to the SPA entry
		ctx.Status(http.StatusOK)
		ctx.File(index)
	})

	return r
}
