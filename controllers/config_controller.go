package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/qforum/config"
	"github.com/cppla/qforum/forum"
	"github.com/cppla/qforum/models"
	"github.com/cppla/qforum/utils"
)

// ConfigController serves the settings a client needs before its first call.
type ConfigController struct {
	cfg config.AppConfig
}

func NewConfigController(cfg config.AppConfig) *ConfigController {
	return &ConfigController{cfg: cfg}
}

// GetConfig returns defaults and accepted query values.
func (c *ConfigController) GetConfig(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"default_topic_color": models.DefaultTopicColor,
		"sorts": []string{
			forum.SortNewest.String(),
			forum.SortOldest.String(),
			forum.SortMostReplies.String(),
		},
		"token_ttl_hours": c.cfg.TokenTTLHours,
	})
}
