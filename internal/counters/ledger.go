package counters

import (
	"context"

	"github.com/jmoiron/sqlx"

	"social-chat-service/internal/observability"
)

// Ledger keeps the denormalized counters consistent with their source tables.
// Every write path recomputes the aggregate from the authoritative rows and
// writes the result back; stored values are never incremented in place, so a
// recount also repairs any prior drift. GREATEST(..., 0) clamps the write on
// delete paths.
type Ledger struct {
	db *sqlx.DB
}

// NewLedger constructs a Ledger.
func NewLedger(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

// RecountPostLikes refreshes likes_count for a post.
func (l *Ledger) RecountPostLikes(ctx context.Context, postID string) error {
	_, err := l.db.ExecContext(ctx, `UPDATE posts
        SET likes_count = GREATEST((SELECT COUNT(*) FROM likes WHERE post_id = posts.id), 0)
        WHERE id = $1`, postID)
	observability.IncCounterRecount("post_likes", err)
	return err
}

// RecountPostComments refreshes comments_count for a post.
func (l *Ledger) RecountPostComments(ctx context.Context, postID string) error {
	_, err := l.db.ExecContext(ctx, `UPDATE posts
        SET comments_count = GREATEST((SELECT COUNT(*) FROM comments WHERE post_id = posts.id), 0)
        WHERE id = $1`, postID)
	observability.IncCounterRecount("post_comments", err)
	return err
}

// RecountCommentLikes refreshes likes_count for a comment.
func (l *Ledger) RecountCommentLikes(ctx context.Context, commentID string) error {
	_, err := l.db.ExecContext(ctx, `UPDATE comments
        SET likes_count = GREATEST((SELECT COUNT(*) FROM comment_likes WHERE comment_id = comments.id), 0)
        WHERE id = $1`, commentID)
	observability.IncCounterRecount("comment_likes", err)
	return err
}

// RecountCommentReplies refreshes replies_count for a parent comment.
func (l *Ledger) RecountCommentReplies(ctx context.Context, commentID string) error {
	_, err := l.db.ExecContext(ctx, `UPDATE comments
        SET replies_count = GREATEST((SELECT COUNT(*) FROM comments c WHERE c.parent_id = comments.id), 0)
        WHERE id = $1`, commentID)
	observability.IncCounterRecount("comment_replies", err)
	return err
}

// RecountFollowCounts refreshes followers_count and following_count on a
// user's profile. Called for both endpoints of an edge on create and remove.
func (l *Ledger) RecountFollowCounts(ctx context.Context, userID string) error {
	_, err := l.db.ExecContext(ctx, `UPDATE profiles SET
        followers_count = GREATEST((SELECT COUNT(*) FROM follows WHERE following_id = profiles.user_id), 0),
        following_count = GREATEST((SELECT COUNT(*) FROM follows WHERE follower_id = profiles.user_id), 0),
        updated_at = NOW()
        WHERE user_id = $1`, userID)
	observability.IncCounterRecount("follow_counts", err)
	return err
}

// RecountUserPosts refreshes posts_count on a user's profile.
func (l *Ledger) RecountUserPosts(ctx context.Context, userID string) error {
	_, err := l.db.ExecContext(ctx, `UPDATE profiles
        SET posts_count = GREATEST((SELECT COUNT(*) FROM posts WHERE user_id = profiles.user_id), 0),
            updated_at = NOW()
        WHERE user_id = $1`, userID)
	observability.IncCounterRecount("user_posts", err)
	return err
}

// ReconcileAll recomputes every stored counter from source rows in bulk.
// Production data showed likes_count drifting before recounts were enforced
// on the write paths; this pass remains as the operational recovery.
func (l *Ledger) ReconcileAll(ctx context.Context) error {
	statements := []string{
		`UPDATE posts SET
            likes_count = GREATEST((SELECT COUNT(*) FROM likes WHERE post_id = posts.id), 0),
            comments_count = GREATEST((SELECT COUNT(*) FROM comments WHERE post_id = posts.id), 0)`,
		`UPDATE comments SET
            likes_count = GREATEST((SELECT COUNT(*) FROM comment_likes WHERE comment_id = comments.id), 0),
            replies_count = GREATEST((SELECT COUNT(*) FROM comments c WHERE c.parent_id = comments.id), 0)`,
		`UPDATE profiles SET
            followers_count = GREATEST((SELECT COUNT(*) FROM follows WHERE following_id = profiles.user_id), 0),
            following_count = GREATEST((SELECT COUNT(*) FROM follows WHERE follower_id = profiles.user_id), 0),
            posts_count = GREATEST((SELECT COUNT(*) FROM posts WHERE user_id = profiles.user_id), 0),
            updated_at = NOW()`,
	}
	for _, stmt := range statements {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			observability.IncCounterRecount("reconcile_all", err)
			return err
		}
	}
	observability.IncCounterRecount("reconcile_all", nil)
	return nil
}
