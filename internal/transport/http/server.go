package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cohortlabs/cohort-hub/internal/auth"
	"github.com/cohortlabs/cohort-hub/internal/config"
	"github.com/cohortlabs/cohort-hub/internal/core"
	"github.com/cohortlabs/cohort-hub/internal/mint"
	"github.com/cohortlabs/cohort-hub/internal/store"
)

// NewServer builds the HTTP server: auth endpoints, cohort state REST, and
// the WebSocket entry point.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, minter mint.Minter, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	apiHandlers := NewAPIHandlers(authService, logger)
	cohortHandlers := NewCohortHandlers(hub, authService, st, minter, logger)
	wsHandler := NewWSHandler(hub, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(stdhttp.StatusOK, gin.H{"status": "ok", "rooms": hub.Rooms()})
	})

	router.POST("/api/register", apiHandlers.Register)
	router.POST("/api/login", apiHandlers.Login)
	router.POST("/api/guest", apiHandlers.GuestLogin)

	authorized := router.Group("/")
	authorized.Use(AuthMiddleware(authService, logger))
	{
		authorized.GET("/ws", wsHandler.Handle)

		authorized.GET("/api/cohorts/:id/snapshot", cohortHandlers.Snapshot)
		authorized.GET("/api/cohorts/:id/leaderboard", cohortHandlers.Leaderboard)
		authorized.GET("/api/cohorts/:id/polls/active", cohortHandlers.ActivePoll)
		authorized.GET("/api/cohorts/:id/analytics", cohortHandlers.Analytics)
		authorized.GET("/api/cohorts/:id/streams", cohortHandlers.ListScheduledStreams)
		authorized.POST("/api/cohorts/:id/streams", cohortHandlers.CreateScheduledStream)
		authorized.PUT("/api/cohorts/:id/participants/:userID/role", cohortHandlers.AssignRole)

		authorized.GET("/api/users/me/notifications", cohortHandlers.ListNotifications)
		authorized.DELETE("/api/users/me/notifications", cohortHandlers.ClearNotifications)
		authorized.PUT("/api/users/me/notifications/preferences", cohortHandlers.SetPreference)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
