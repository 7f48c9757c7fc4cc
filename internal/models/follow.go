package models

import "time"

// Follow is a directed follow edge. The (follower, following) pair is unique
// and self-edges are rejected.
type Follow struct {
	ID          string    `db:"id" json:"id"`
	FollowerID  string    `db:"follower_id" json:"follower_id"`
	FollowingID string    `db:"following_id" json:"following_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
