package chat

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

// Repository persists chat messages and answers the attendance predicate. It
// implements Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chat repository.
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

// CreateMessage inserts a message with a server-assigned timestamp. Foreign key
// violations map to ErrEventNotFound / ErrUserNotFound.
func (r *Repository) CreateMessage(ctx context.Context, eventID, userID int64, content string) (*models.Message, error) {
	const q = `INSERT INTO messages (event_id, user_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, event_id, user_id, content, created_at`
	var m models.Message
	err := r.pool.QueryRow(ctx, q, eventID, userID, content).
		Scan(&m.ID, &m.EventID, &m.UserID, &m.Content, &m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			switch pgErr.ConstraintName {
			case "messages_event_id_fkey":
				return nil, ErrEventNotFound
			case "messages_user_id_fkey":
				return nil, ErrUserNotFound
			}
		}
		return nil, err
	}
	return &m, nil
}

// ListByEvent returns an event's messages in timestamp order, each joined with
// its author's email for attribution.
func (r *Repository) ListByEvent(ctx context.Context, eventID int64) ([]HistoryEntry, error) {
	const q = `SELECT m.content, u.email, m.user_id, m.created_at
		FROM messages m JOIN users u ON u.id = m.user_id
		WHERE m.event_id = $1
		ORDER BY m.created_at, m.id`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.Content, &e.Email, &e.UserID, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
