package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherup/backend/internal/models"
)

var ErrNotFound = errors.New("user does not exist")

// Repository handles user profile persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a users repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a user's public profile.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.UserPublic, error) {
	const q = `SELECT id, email, COALESCE(school,''), COALESCE(bio,'') FROM users WHERE id = $1`
	var u models.UserPublic
	err := r.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Email, &u.School, &u.Bio)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpdateProfile sets a user's school and bio.
func (r *Repository) UpdateProfile(ctx context.Context, id int64, school, bio string) (*models.UserPublic, error) {
	const q = `UPDATE users SET school = NULLIF($1,''), bio = NULLIF($2,'')
		WHERE id = $3
		RETURNING id, email, COALESCE(school,''), COALESCE(bio,'')`
	var u models.UserPublic
	err := r.pool.QueryRow(ctx, q, school, bio, id).Scan(&u.ID, &u.Email, &u.School, &u.Bio)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
