package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherup/backend/internal/models"
)

var ErrEmailTaken = errors.New("email already registered")

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	const q = `SELECT id, email, password_hash, birthday, COALESCE(school,''), COALESCE(bio,''), created_at
		FROM users WHERE id = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Email, &u.Password, &u.Birthday, &u.School, &u.Bio, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT id, email, password_hash, birthday, COALESCE(school,''), COALESCE(bio,''), created_at
		FROM users WHERE email = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, email).Scan(&u.ID, &u.Email, &u.Password, &u.Birthday, &u.School, &u.Bio, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user. Returns ErrEmailTaken when the email is in use.
func (r *Repository) Create(ctx context.Context, email, passwordHash string, birthday time.Time, school, bio string) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, birthday, school, bio)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		RETURNING id, email, password_hash, birthday, COALESCE(school,''), COALESCE(bio,''), created_at`
	var u models.User
	err := r.pool.QueryRow(ctx, q, email, passwordHash, birthday, school, bio).
		Scan(&u.ID, &u.Email, &u.Password, &u.Birthday, &u.School, &u.Bio, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return &u, nil
}
