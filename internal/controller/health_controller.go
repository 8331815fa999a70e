package controller

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/steveiliop56/tinyoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
)

type HealthController struct {
	router *gin.RouterGroup
	db     *sql.DB
}

func NewHealthController(router *gin.RouterGroup, db *sql.DB) *HealthController {
	return &HealthController{
		router: router,
		db:     db,
	}
}

func (controller *HealthController) SetupRoutes() {
	controller.router.GET("/healthz", controller.healthHandler)
	controller.router.HEAD("/healthz", controller.healthHandler)
}

func (controller *HealthController) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := controller.db.PingContext(ctx); err != nil {
		tlog.App.Error().Err(err).Msg("Database health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "Database unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Healthy",
	})
}
