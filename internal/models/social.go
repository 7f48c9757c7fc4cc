package models

import "time"

// Post is a social post. It exists here as the source of truth behind the
// likes/comments counters; feed rendering is not this service's concern.
type Post struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	Caption       *string   `db:"caption" json:"caption,omitempty"`
	MediaURL      *string   `db:"media_url" json:"media_url,omitempty"`
	LikesCount    int       `db:"likes_count" json:"likes_count"`
	CommentsCount int       `db:"comments_count" json:"comments_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Comment on a post, optionally a reply to another comment.
type Comment struct {
	ID           string    `db:"id" json:"id"`
	PostID       string    `db:"post_id" json:"post_id"`
	UserID       string    `db:"user_id" json:"user_id"`
	ParentID     *string   `db:"parent_id" json:"parent_id,omitempty"`
	Content      string    `db:"content" json:"content"`
	LikesCount   int       `db:"likes_count" json:"likes_count"`
	RepliesCount int       `db:"replies_count" json:"replies_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Like marks that a user liked a post, unique per (user, post).
type Like struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	PostID    string    `db:"post_id" json:"post_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
