package events

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gatherup/backend/internal/models"
)

var ErrNotFound = errors.New("event does not exist")

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (title, description, event_time, location, invite_only, host_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, e.Title, e.Description, e.EventTime, e.Location, e.InviteOnly, e.HostID).
		Scan(&e.ID, &e.CreatedAt)
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	const q = `SELECT id, title, description, event_time, location, invite_only, host_id, created_at
		FROM events WHERE id = $1`
	var e models.Event
	err := r.pool.QueryRow(ctx, q, id).
		Scan(&e.ID, &e.Title, &e.Description, &e.EventTime, &e.Location, &e.InviteOnly, &e.HostID, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListVisible returns events the user may see: public events plus invite-only
// events they host or attend, soonest first.
func (r *Repository) ListVisible(ctx context.Context, userID int64) ([]models.Event, error) {
	const q = `SELECT id, title, description, event_time, location, invite_only, host_id, created_at
		FROM events
		WHERE NOT invite_only
		   OR host_id = $1
		   OR EXISTS (SELECT 1 FROM attendances a WHERE a.event_id = events.id AND a.user_id = $1)
		ORDER BY event_time`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.EventTime, &e.Location, &e.InviteOnly, &e.HostID, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Update updates an event's editable fields.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events SET title = $1, description = $2, event_time = $3, location = $4, invite_only = $5
		WHERE id = $6`
	_, err := r.pool.Exec(ctx, q, e.Title, e.Description, e.EventTime, e.Location, e.InviteOnly, e.ID)
	return err
}

// Delete removes an event. Messages and attendances cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM events WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}
