package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"social-chat-service/internal/counters"
	"social-chat-service/internal/models"
)

var (
	ErrCommentNotFound  = errors.New("comment not found")
	ErrNotCommentOwner  = errors.New("user does not own the comment")
	ErrEmptyComment     = errors.New("comment content is empty")
	ErrParentMismatched = errors.New("parent comment belongs to a different post")
)

// CommentRepository owns comment and comment-like rows; every mutation drives
// the affected ledger recounts (post comments, parent replies, comment likes).
type CommentRepository interface {
	CreateComment(ctx context.Context, postID, userID, content string, parentID *string) (models.Comment, error)
	DeleteComment(ctx context.Context, commentID, userID string) error
	GetComment(ctx context.Context, commentID string) (models.Comment, error)
	LikeComment(ctx context.Context, commentID, userID string) (bool, error)
	UnlikeComment(ctx context.Context, commentID, userID string) error
}

// CommentRepo is a sqlx implementation of CommentRepository.
type CommentRepo struct {
	db     *sqlx.DB
	ledger *counters.Ledger
}

// NewCommentRepo constructs a CommentRepo.
func NewCommentRepo(db *sqlx.DB, ledger *counters.Ledger) *CommentRepo {
	return &CommentRepo{db: db, ledger: ledger}
}

const commentColumns = `id, post_id, user_id, parent_id, content, likes_count, replies_count, created_at`

// CreateComment inserts a comment (optionally a reply) and recounts the
// post's comments_count plus the parent's replies_count.
func (r *CommentRepo) CreateComment(ctx context.Context, postID, userID, content string, parentID *string) (models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, ErrEmptyComment
	}

	if parentID != nil {
		parent, err := r.GetComment(ctx, *parentID)
		if err != nil {
			return models.Comment{}, err
		}
		if parent.PostID != postID {
			return models.Comment{}, ErrParentMismatched
		}
	}

	var comment models.Comment
	err := r.db.QueryRowxContext(ctx, `INSERT INTO comments (id, post_id, user_id, parent_id, content)
        VALUES ($1, $2, $3, $4, $5) RETURNING `+commentColumns,
		uuid.NewString(), postID, userID, parentID, content).StructScan(&comment)
	if err != nil {
		return models.Comment{}, err
	}

	if err := r.ledger.RecountPostComments(ctx, postID); err != nil {
		return models.Comment{}, err
	}
	if parentID != nil {
		if err := r.ledger.RecountCommentReplies(ctx, *parentID); err != nil {
			return models.Comment{}, err
		}
	}
	return comment, nil
}

// DeleteComment removes the caller's comment and recounts the affected
// aggregates.
func (r *CommentRepo) DeleteComment(ctx context.Context, commentID, userID string) error {
	comment, err := r.GetComment(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.UserID != userID {
		return ErrNotCommentOwner
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id=$1`, commentID); err != nil {
		return err
	}

	if err := r.ledger.RecountPostComments(ctx, comment.PostID); err != nil {
		return err
	}
	if comment.ParentID != nil {
		return r.ledger.RecountCommentReplies(ctx, *comment.ParentID)
	}
	return nil
}

// GetComment fetches a comment by id.
func (r *CommentRepo) GetComment(ctx context.Context, commentID string) (models.Comment, error) {
	var comment models.Comment
	err := r.db.GetContext(ctx, &comment,
		`SELECT `+commentColumns+` FROM comments WHERE id=$1`, commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Comment{}, ErrCommentNotFound
	}
	return comment, err
}

// LikeComment records a comment like; false when it already existed.
func (r *CommentRepo) LikeComment(ctx context.Context, commentID, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO comment_likes (id, user_id, comment_id)
        VALUES ($1, $2, $3) ON CONFLICT (user_id, comment_id) DO NOTHING`,
		uuid.NewString(), userID, commentID)
	if err != nil {
		return false, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if count == 0 {
		return false, nil
	}
	return true, r.ledger.RecountCommentLikes(ctx, commentID)
}

// UnlikeComment removes a comment like; removing an absent like is a no-op.
func (r *CommentRepo) UnlikeComment(ctx context.Context, commentID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comment_likes WHERE user_id=$1 AND comment_id=$2`,
		userID, commentID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	return r.ledger.RecountCommentLikes(ctx, commentID)
}
