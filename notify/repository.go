package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotificationNotFound signals that the notification does not exist or
// belongs to another user.
var ErrNotificationNotFound = errors.New("notify: notification not found")

// listLimit caps how many notifications one listing returns.
const listLimit = 200

// Repository handles notification persistence.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Notification, error)
	ListForUser(ctx context.Context, userID string) ([]Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) (Notification, error)
	MarkAllRead(ctx context.Context, userID string) error
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const notificationColumns = `id, user_id, kind, message, match_id, lost_item_id, found_item_id, read, created_at`

func (r *PGRepository) Create(ctx context.Context, params CreateParams) (Notification, error) {
	if params.UserID == "" {
		return Notification{}, fmt.Errorf("notify: user id required")
	}

	query := fmt.Sprintf(`
		INSERT INTO notifications (user_id, kind, message, match_id, lost_item_id, found_item_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s
	`, notificationColumns)

	n, err := scanNotification(r.pool.QueryRow(ctx, query,
		params.UserID,
		params.Kind,
		params.Message,
		params.MatchID,
		params.LostItemID,
		params.FoundItemID,
	))
	if err != nil {
		return Notification{}, fmt.Errorf("notify: create: %w", err)
	}
	return n, nil
}

// ListForUser returns the user's notifications, unread first then newest
// first, capped at listLimit.
func (r *PGRepository) ListForUser(ctx context.Context, userID string) ([]Notification, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM notifications
		WHERE user_id = $1
		ORDER BY read ASC, created_at DESC
		LIMIT %d
	`, notificationColumns, listLimit)

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("notify: list: %w", err)
	}
	defer rows.Close()

	out := make([]Notification, 0, 16)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("notify: scan: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notify: iterate: %w", err)
	}
	return out, nil
}

func (r *PGRepository) MarkRead(ctx context.Context, userID, notificationID string) (Notification, error) {
	query := fmt.Sprintf(`
		UPDATE notifications
		SET read = TRUE
		WHERE id = $1 AND user_id = $2
		RETURNING %s
	`, notificationColumns)

	n, err := scanNotification(r.pool.QueryRow(ctx, query, notificationID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Notification{}, ErrNotificationNotFound
		}
		return Notification{}, fmt.Errorf("notify: mark read: %w", err)
	}
	return n, nil
}

func (r *PGRepository) MarkAllRead(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE
	`, userID); err != nil {
		return fmt.Errorf("notify: mark all read: %w", err)
	}
	return nil
}

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	return n, row.Scan(
		&n.ID,
		&n.UserID,
		&n.Kind,
		&n.Message,
		&n.MatchID,
		&n.LostItemID,
		&n.FoundItemID,
		&n.Read,
		&n.CreatedAt,
	)
}
