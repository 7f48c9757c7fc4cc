package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"social-chat-service/internal/counters"
	"social-chat-service/internal/models"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrNotPostOwner = errors.New("user does not own the post")
)

// PostRepository owns post and like rows, the source of truth behind
// likes_count, comments_count and posts_count. Every mutation drives a ledger
// recount.
type PostRepository interface {
	CreatePost(ctx context.Context, userID string, caption, mediaURL *string) (models.Post, error)
	DeletePost(ctx context.Context, postID, userID string) error
	GetPost(ctx context.Context, postID string) (models.Post, error)
	LikePost(ctx context.Context, postID, userID string) (bool, error)
	UnlikePost(ctx context.Context, postID, userID string) error
}

// PostRepo is a sqlx implementation of PostRepository.
type PostRepo struct {
	db     *sqlx.DB
	ledger *counters.Ledger
}

// NewPostRepo constructs a PostRepo.
func NewPostRepo(db *sqlx.DB, ledger *counters.Ledger) *PostRepo {
	return &PostRepo{db: db, ledger: ledger}
}

const postColumns = `id, user_id, caption, media_url, likes_count, comments_count, created_at`

// CreatePost inserts a post and recounts the author's posts_count.
func (r *PostRepo) CreatePost(ctx context.Context, userID string, caption, mediaURL *string) (models.Post, error) {
	var post models.Post
	err := r.db.QueryRowxContext(ctx, `INSERT INTO posts (id, user_id, caption, media_url)
        VALUES ($1, $2, $3, $4) RETURNING `+postColumns,
		uuid.NewString(), userID, caption, mediaURL).StructScan(&post)
	if err != nil {
		return models.Post{}, err
	}
	if err := r.ledger.RecountUserPosts(ctx, userID); err != nil {
		return models.Post{}, err
	}
	return post, nil
}

// DeletePost removes the caller's post and recounts posts_count.
func (r *PostRepo) DeletePost(ctx context.Context, postID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id=$1 AND user_id=$2`, postID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists,
			`SELECT EXISTS(SELECT 1 FROM posts WHERE id=$1)`, postID); err != nil {
			return err
		}
		if exists {
			return ErrNotPostOwner
		}
		return ErrPostNotFound
	}
	return r.ledger.RecountUserPosts(ctx, userID)
}

// GetPost fetches a post by id.
func (r *PostRepo) GetPost(ctx context.Context, postID string) (models.Post, error) {
	var post models.Post
	err := r.db.GetContext(ctx, &post, `SELECT `+postColumns+` FROM posts WHERE id=$1`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Post{}, ErrPostNotFound
	}
	return post, err
}

// LikePost records a like. Returns false without error when the like already
// existed; the unique constraint absorbs the race.
func (r *PostRepo) LikePost(ctx context.Context, postID, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO likes (id, user_id, post_id) VALUES ($1, $2, $3)
        ON CONFLICT (user_id, post_id) DO NOTHING`, uuid.NewString(), userID, postID)
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
	return true, r.ledger.RecountPostLikes(ctx, postID)
}

// UnlikePost removes a like and recounts. Removing an absent like is a no-op.
func (r *PostRepo) UnlikePost(ctx context.Context, postID, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM likes WHERE user_id=$1 AND post_id=$2`, userID, postID)
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
	return r.ledger.RecountPostLikes(ctx, postID)
}
