package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"social-chat-service/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository stores the locally known view of users: handle, avatar
// and the denormalized social counters.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (models.Profile, error)
	UpsertProfile(ctx context.Context, userID, username string, avatarURL, bio *string) (models.Profile, error)
}

// ProfileRepo is a sqlx implementation of ProfileRepository.
type ProfileRepo struct {
	db *sqlx.DB
}

// NewProfileRepo constructs a ProfileRepo.
func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

const profileColumns = `user_id, username, avatar_url, bio, followers_count,
    following_count, posts_count, created_at, updated_at`

// GetProfile fetches a profile by user id.
func (r *ProfileRepo) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	var profile models.Profile
	err := r.db.GetContext(ctx, &profile,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrProfileNotFound
	}
	return profile, err
}

// GetProfileByUsername fetches a profile by handle.
func (r *ProfileRepo) GetProfileByUsername(ctx context.Context, username string) (models.Profile, error) {
	var profile models.Profile
	err := r.db.GetContext(ctx, &profile,
		`SELECT `+profileColumns+` FROM profiles WHERE username=$1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrProfileNotFound
	}
	return profile, err
}

// UpsertProfile creates or refreshes the stored view of a user. Counters are
// never touched here; they belong to the ledger.
func (r *ProfileRepo) UpsertProfile(ctx context.Context, userID, username string, avatarURL, bio *string) (models.Profile, error) {
	var profile models.Profile
	err := r.db.QueryRowxContext(ctx, `INSERT INTO profiles (user_id, username, avatar_url, bio)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id) DO UPDATE
        SET username=EXCLUDED.username, avatar_url=EXCLUDED.avatar_url,
            bio=EXCLUDED.bio, updated_at=NOW()
        RETURNING `+profileColumns, userID, username, avatarURL, bio).StructScan(&profile)
	return profile, err
}
