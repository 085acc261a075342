package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cohortlabs/cohort-hub/internal/auth"
	"github.com/cohortlabs/cohort-hub/internal/core"
	"github.com/cohortlabs/cohort-hub/internal/mint"
	"github.com/cohortlabs/cohort-hub/internal/store"
)

// CohortHandlers provides HTTP handlers for cohort state endpoints. They read
// the same authoritative in-memory state the WebSocket fan-out serves, so a
// dashboard can render before its socket connects.
type CohortHandlers struct {
	hub         *core.Hub
	authService *auth.Service
	store       store.Store
	minter      mint.Minter
	log         *zerolog.Logger
}

// NewCohortHandlers creates a new cohort handlers instance.
func NewCohortHandlers(hub *core.Hub, authService *auth.Service, st store.Store, minter mint.Minter, logger *zerolog.Logger) *CohortHandlers {
	return &CohortHandlers{
		hub:         hub,
		authService: authService,
		store:       st,
		minter:      minter,
		log:         logger,
	}
}

// Snapshot returns the cohort's full state plus version.
// GET /api/cohorts/:id/snapshot
func (h *CohortHandlers) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.Snapshot(c.Param("id")))
}

// Leaderboard returns the cohort's current ranking.
// GET /api/cohorts/:id/leaderboard
func (h *CohortHandlers) Leaderboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.Leaderboard(c.Param("id")))
}

// ActivePoll returns the open poll, or 404 when none is open.
// GET /api/cohorts/:id/polls/active
func (h *CohortHandlers) ActivePoll(c *gin.Context) {
	poll := h.hub.ActivePoll(c.Param("id"))
	if poll == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no open poll"})
		return
	}
	c.JSON(http.StatusOK, poll)
}

// Analytics returns the cohort's viewer and chat-activity series plus the
// engagement score.
// GET /api/cohorts/:id/analytics
func (h *CohortHandlers) Analytics(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.Analytics(c.Param("id")))
}

// ScheduleStreamRequest represents the schedule request body.
type ScheduleStreamRequest struct {
	Title       string    `json:"title" binding:"required,min=1,max=200"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"startsAt" binding:"required"`
}

// ListScheduledStreams returns the cohort's schedule, soonest first.
// GET /api/cohorts/:id/streams
func (h *CohortHandlers) ListScheduledStreams(c *gin.Context) {
	streams, err := h.store.ListScheduledStreams(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Error().Err(err).Str("cohort", c.Param("id")).Msg("failed to list scheduled streams")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, streams)
}

// CreateScheduledStream persists a schedule record and announces it to the
// cohort room, if one is live.
// POST /api/cohorts/:id/streams
func (h *CohortHandlers) CreateScheduledStream(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	if !core.ParseRole(c.GetString(ContextKeyRole)).CanModerate() {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "moderator role required"})
		return
	}

	var req ScheduleStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid schedule request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	sched, err := h.store.CreateScheduledStream(c.Request.Context(), &store.ScheduledStream{
		CohortID:    c.Param("id"),
		Title:       req.Title,
		Description: req.Description,
		StartsAt:    req.StartsAt,
		CreatedBy:   userID,
	})
	if err != nil {
		h.log.Error().Err(err).Str("cohort", c.Param("id")).Msg("failed to create scheduled stream")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.hub.ScheduleStream(c.Request.Context(), sched)
	h.log.Info().Str("cohort", sched.CohortID).Int64("schedule_id", sched.ID).Msg("stream scheduled")
	c.JSON(http.StatusCreated, sched)
}

// ListNotifications returns the caller's notification history, newest first.
// GET /api/users/me/notifications
func (h *CohortHandlers) ListNotifications(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	notifications, err := h.store.ListNotifications(c.Request.Context(), userID, 50)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to list notifications")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// ClearNotifications empties the caller's notification list.
// DELETE /api/users/me/notifications
func (h *CohortHandlers) ClearNotifications(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	if err := h.hub.Notifier().Clear(c.Request.Context(), userID); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to clear notifications")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// PreferenceRequest represents a notification preference update.
type PreferenceRequest struct {
	Type    string `json:"type" binding:"required"`
	Enabled *bool  `json:"enabled" binding:"required"`
}

// SetPreference flips one notification type for the caller.
// PUT /api/users/me/notifications/preferences
func (h *CohortHandlers) SetPreference(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid preference request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	switch req.Type {
	case core.NotifyChatMention, core.NotifyStreamStart, core.NotifyNewParticipants, core.NotifyModeration:
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown notification type"})
		return
	}

	if err := h.store.SetNotificationPreference(c.Request.Context(), userID, req.Type, *req.Enabled); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to set preference")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// AssignRoleRequest represents a role assignment body.
type AssignRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// AssignRole promotes or demotes a participant. Admin only. A successful
// promotion also requests an achievement token from the mint collaborator;
// that call is fire-and-forget and never blocks or rolls back the change.
// PUT /api/cohorts/:id/participants/:userID/role
func (h *CohortHandlers) AssignRole(c *gin.Context) {
	actorID, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}
	if core.ParseRole(c.GetString(ContextKeyRole)) != core.RoleAdmin {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "admin role required"})
		return
	}

	var req AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid role request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	targetID := c.Param("userID")
	if err := h.authService.AssignRole(c.Request.Context(), targetID, req.Role); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidRole):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid role"})
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		default:
			h.log.Error().Err(err).Str("user_id", targetID).Msg("failed to assign role")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.minter.Mint(ctx, targetID, "role:"+req.Role); err != nil {
			h.log.Warn().Err(err).Str("user_id", targetID).Msg("achievement mint failed")
		}
		if err := h.hub.Notifier().Notify(ctx, targetID, core.NotifyModeration,
			"Role updated", "Your role is now "+req.Role); err != nil {
			h.log.Warn().Err(err).Str("user_id", targetID).Msg("role notification failed")
		}
	}()

	h.log.Info().Str("actor", actorID).Str("user_id", targetID).Str("role", req.Role).Msg("role assigned")
	c.Status(http.StatusNoContent)
}
