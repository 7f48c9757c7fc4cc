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
	ErrSelfFollow      = errors.New("users cannot follow themselves")
	ErrDuplicateFollow = errors.New("follow edge already exists")
	ErrFollowNotFound  = errors.New("follow edge not found")
)

// FollowRepository stores directed follow edges and answers mutuality
// queries. Mutuality is two point lookups, never a traversal.
type FollowRepository interface {
	CreateEdge(ctx context.Context, followerID, followingID string) (models.Follow, error)
	RemoveEdge(ctx context.Context, followerID, followingID string) error
	IsMutual(ctx context.Context, a, b string) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
}

// FollowRepo is a sqlx implementation of FollowRepository. Edge mutations
// recount both endpoints' follow counters through the ledger.
type FollowRepo struct {
	db     *sqlx.DB
	ledger *counters.Ledger
}

// NewFollowRepo constructs a FollowRepo.
func NewFollowRepo(db *sqlx.DB, ledger *counters.Ledger) *FollowRepo {
	return &FollowRepo{db: db, ledger: ledger}
}

// CreateEdge inserts a follow edge. The unique constraint absorbs concurrent
// duplicates; a conflicting insert surfaces as ErrDuplicateFollow.
func (r *FollowRepo) CreateEdge(ctx context.Context, followerID, followingID string) (models.Follow, error) {
	if followerID == followingID {
		return models.Follow{}, ErrSelfFollow
	}

	var follow models.Follow
	err := r.db.QueryRowxContext(ctx, `INSERT INTO follows (id, follower_id, following_id)
        VALUES ($1, $2, $3)
        ON CONFLICT (follower_id, following_id) DO NOTHING
        RETURNING id, follower_id, following_id, created_at`,
		uuid.NewString(), followerID, followingID).StructScan(&follow)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Follow{}, ErrDuplicateFollow
	}
	if err != nil {
		return models.Follow{}, err
	}

	if err := r.recountBoth(ctx, followerID, followingID); err != nil {
		return models.Follow{}, err
	}
	return follow, nil
}

// RemoveEdge deletes a follow edge and recounts both endpoints.
func (r *FollowRepo) RemoveEdge(ctx context.Context, followerID, followingID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM follows WHERE follower_id=$1 AND following_id=$2`,
		followerID, followingID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrFollowNotFound
	}
	return r.recountBoth(ctx, followerID, followingID)
}

// IsMutual reports whether edges exist in both directions between a and b.
func (r *FollowRepo) IsMutual(ctx context.Context, a, b string) (bool, error) {
	var mutual bool
	err := r.db.GetContext(ctx, &mutual, `SELECT
        EXISTS(SELECT 1 FROM follows WHERE follower_id=$1 AND following_id=$2) AND
        EXISTS(SELECT 1 FROM follows WHERE follower_id=$2 AND following_id=$1)`, a, b)
	return mutual, err
}

// IsFollowing reports whether a single directed edge exists.
func (r *FollowRepo) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id=$1 AND following_id=$2)`,
		followerID, followingID)
	return exists, err
}

func (r *FollowRepo) recountBoth(ctx context.Context, followerID, followingID string) error {
	if err := r.ledger.RecountFollowCounts(ctx, followerID); err != nil {
		return err
	}
	return r.ledger.RecountFollowCounts(ctx, followingID)
}
