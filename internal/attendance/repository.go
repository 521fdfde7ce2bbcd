package attendance

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherup/backend/internal/models"
)

var (
	ErrEventNotFound = errors.New("event does not exist")
	ErrUserNotFound  = errors.New("user does not exist")
)

// Repository handles attendance persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an attendance repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// IsAttendee reports whether the user has an attendance record for the event.
func (r *Repository) IsAttendee(ctx context.Context, userID, eventID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM attendances WHERE user_id = $1 AND event_id = $2)`
	var ok bool
	err := r.pool.QueryRow(ctx, q, userID, eventID).Scan(&ok)
	return ok, err
}

// Add creates an attendance record. Adding an existing pair is a no-op.
func (r *Repository) Add(ctx context.Context, userID, eventID int64) error {
	const q = `INSERT INTO attendances (user_id, event_id) VALUES ($1, $2)
		ON CONFLICT (user_id, event_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, q, userID, eventID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			switch pgErr.ConstraintName {
			case "attendances_event_id_fkey":
				return ErrEventNotFound
			case "attendances_user_id_fkey":
				return ErrUserNotFound
			}
		}
		return err
	}
	return nil
}

// Remove deletes an attendance record if present.
func (r *Repository) Remove(ctx context.Context, userID, eventID int64) error {
	const q = `DELETE FROM attendances WHERE user_id = $1 AND event_id = $2`
	_, err := r.pool.Exec(ctx, q, userID, eventID)
	return err
}

// ListByEvent returns the attendees of an event.
func (r *Repository) ListByEvent(ctx context.Context, eventID int64) ([]models.UserPublic, error) {
	const q = `SELECT u.id, u.email, COALESCE(u.school,''), COALESCE(u.bio,'')
		FROM attendances a JOIN users u ON u.id = a.user_id
		WHERE a.event_id = $1
		ORDER BY a.created_at`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.School, &u.Bio); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}
