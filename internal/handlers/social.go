package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-chat-service/internal/counters"
	"social-chat-service/internal/notifications"
	"social-chat-service/internal/repositories"
)

// SocialHandler exposes the write paths behind the denormalized counters:
// posts, comments and likes.
type SocialHandler struct {
	posts    repositories.PostRepository
	comments repositories.CommentRepository
	notifier *notifications.Dispatcher
	ledger   *counters.Ledger
}

// NewSocialHandler builds a SocialHandler.
func NewSocialHandler(
	posts repositories.PostRepository,
	comments repositories.CommentRepository,
	notifier *notifications.Dispatcher,
	ledger *counters.Ledger,
) *SocialHandler {
	return &SocialHandler{posts: posts, comments: comments, notifier: notifier, ledger: ledger}
}

// CreatePost stores a post.
func (h *SocialHandler) CreatePost(c *gin.Context) {
	var req struct {
		Caption  *string `json:"caption"`
		MediaURL *string `json:"media_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.posts.CreatePost(c.Request.Context(), currentUserID(c), req.Caption, req.MediaURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create post"})
		return
	}

	c.JSON(http.StatusCreated, post)
}

// DeletePost removes the caller's post.
func (h *SocialHandler) DeletePost(c *gin.Context) {
	postID := c.Param("post_id")

	if err := h.posts.DeletePost(c.Request.Context(), postID, currentUserID(c)); err != nil {
		switch {
		case errors.Is(err, repositories.ErrPostNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		case errors.Is(err, repositories.ErrNotPostOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can delete a post"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete post"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// LikePost records a like; liking twice is a no-op.
func (h *SocialHandler) LikePost(c *gin.Context) {
	postID := c.Param("post_id")
	userID := currentUserID(c)

	post, err := h.posts.GetPost(c.Request.Context(), postID)
	if err != nil {
		if errors.Is(err, repositories.ErrPostNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load post"})
		return
	}

	created, err := h.posts.LikePost(c.Request.Context(), postID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not like post"})
		return
	}

	if created {
		h.notifier.PostLiked(c.Request.Context(), userID, currentUsername(c), post)
	}

	c.JSON(http.StatusOK, gin.H{"liked": true})
}

// UnlikePost removes a like.
func (h *SocialHandler) UnlikePost(c *gin.Context) {
	postID := c.Param("post_id")

	if err := h.posts.UnlikePost(c.Request.Context(), postID, currentUserID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not unlike post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"liked": false})
}

// CreateComment stores a comment or reply on a post.
func (h *SocialHandler) CreateComment(c *gin.Context) {
	postID := c.Param("post_id")
	userID := currentUserID(c)

	var req struct {
		Content  string  `json:"content" binding:"required"`
		ParentID *string `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.posts.GetPost(c.Request.Context(), postID)
	if err != nil {
		if errors.Is(err, repositories.ErrPostNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load post"})
		return
	}

	comment, err := h.comments.CreateComment(c.Request.Context(), postID, userID, req.Content, req.ParentID)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrEmptyComment),
			errors.Is(err, repositories.ErrParentMismatched):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, repositories.ErrCommentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "parent comment not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create comment"})
		}
		return
	}

	h.notifier.CommentAdded(c.Request.Context(), userID, currentUsername(c), post.UserID, comment)

	c.JSON(http.StatusCreated, comment)
}

// DeleteComment removes the caller's comment.
func (h *SocialHandler) DeleteComment(c *gin.Context) {
	commentID := c.Param("comment_id")

	if err := h.comments.DeleteComment(c.Request.Context(), commentID, currentUserID(c)); err != nil {
		switch {
		case errors.Is(err, repositories.ErrCommentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "comment not found"})
		case errors.Is(err, repositories.ErrNotCommentOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can delete a comment"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete comment"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// LikeComment records a comment like.
func (h *SocialHandler) LikeComment(c *gin.Context) {
	commentID := c.Param("comment_id")

	if _, err := h.comments.LikeComment(c.Request.Context(), commentID, currentUserID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not like comment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"liked": true})
}

// UnlikeComment removes a comment like.
func (h *SocialHandler) UnlikeComment(c *gin.Context) {
	commentID := c.Param("comment_id")

	if err := h.comments.UnlikeComment(c.Request.Context(), commentID, currentUserID(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not unlike comment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"liked": false})
}

// ReconcileCounters recomputes every stored counter from source rows.
func (h *SocialHandler) ReconcileCounters(c *gin.Context) {
	if err := h.ledger.ReconcileAll(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
