package models

import "time"

// Profile is the locally stored view of a user: handle, avatar and the
// denormalized social counters. The identity itself is owned elsewhere.
type Profile struct {
	UserID         string    `db:"user_id" json:"user_id"`
	Username       string    `db:"username" json:"username"`
	AvatarURL      *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	Bio            *string   `db:"bio" json:"bio,omitempty"`
	FollowersCount int       `db:"followers_count" json:"followers_count"`
	FollowingCount int       `db:"following_count" json:"following_count"`
	PostsCount     int       `db:"posts_count" json:"posts_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// SenderSummary is the compact sender view embedded in wire events.
type SenderSummary struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
}
