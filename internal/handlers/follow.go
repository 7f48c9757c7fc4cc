package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-chat-service/internal/notifications"
	"social-chat-service/internal/repositories"
)

// FollowHandler manages follow edges. This is the only write surface for the
// follow table: direct row writes would bypass the counter recounts.
type FollowHandler struct {
	follows  repositories.FollowRepository
	notifier *notifications.Dispatcher
}

// NewFollowHandler builds a FollowHandler.
func NewFollowHandler(follows repositories.FollowRepository, notifier *notifications.Dispatcher) *FollowHandler {
	return &FollowHandler{follows: follows, notifier: notifier}
}

// Follow creates a follow edge toward the target user.
func (h *FollowHandler) Follow(c *gin.Context) {
	targetID := c.Param("user_id")
	userID := currentUserID(c)

	follow, err := h.follows.CreateEdge(c.Request.Context(), userID, targetID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrSelfFollow):
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot follow yourself"})
		case errors.Is(err, repositories.ErrDuplicateFollow):
			c.JSON(http.StatusConflict, gin.H{"error": "already following"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create follow"})
		}
		return
	}

	h.notifier.FollowCreated(c.Request.Context(), userID, currentUsername(c), targetID)

	c.JSON(http.StatusCreated, follow)
}

// Unfollow removes a follow edge toward the target user.
func (h *FollowHandler) Unfollow(c *gin.Context) {
	targetID := c.Param("user_id")
	userID := currentUserID(c)

	if err := h.follows.RemoveEdge(c.Request.Context(), userID, targetID); err != nil {
		if errors.Is(err, repositories.ErrFollowNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not following"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove follow"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Relationship reports the edge state between the caller and another user.
func (h *FollowHandler) Relationship(c *gin.Context) {
	targetID := c.Param("user_id")
	userID := currentUserID(c)

	following, err := h.follows.IsFollowing(c.Request.Context(), userID, targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load relationship"})
		return
	}
	followedBy, err := h.follows.IsFollowing(c.Request.Context(), targetID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load relationship"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"following":   following,
		"followed_by": followedBy,
		"mutual":      following && followedBy,
	})
}
