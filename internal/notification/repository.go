package notification

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates no notification matched the lookup key.
	ErrNotFound = errors.New("notification not found")

	// ErrNoPreferences indicates the user has never saved preferences.
	ErrNoPreferences = errors.New("preferences not found")
)

// Repository persists notifications and per-user preferences.
type Repository interface {
	Insert(ctx context.Context, n Notification) error
	List(ctx context.Context, userID string, limit int) ([]Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	Preferences(ctx context.Context, userID string) (Preferences, error)
	SavePreferences(ctx context.Context, prefs Preferences) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed notification repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores a new notification.
func (r *PostgresRepository) Insert(ctx context.Context, n Notification) error {
	_, err := r.db.Exec(ctx, `INSERT INTO notifications (id, user_id, kind, title, body, read, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserID, n.Kind, n.Title, n.Body, n.Read, n.CreatedAt.UTC())
	return err
}

// List returns the user's notifications, newest first.
func (r *PostgresRepository) List(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT id, user_id, kind, title, body, read, created_at
        FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UnreadCount returns the number of unread notifications for the user.
func (r *PostgresRepository) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`,
		userID).Scan(&count)
	return count, err
}

// MarkRead marks a single notification as read.
func (r *PostgresRepository) MarkRead(ctx context.Context, userID, id string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every notification for the user as read.
func (r *PostgresRepository) MarkAllRead(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`,
		userID)
	return err
}

// Preferences fetches the user's saved preferences.
func (r *PostgresRepository) Preferences(ctx context.Context, userID string) (Preferences, error) {
	row := r.db.QueryRow(ctx, `SELECT user_id, in_app_enabled, push_enabled, telegram_enabled,
        frequency, muted_challenges, muted_users, updated_at
        FROM notification_preferences WHERE user_id = $1`, userID)

	var p Preferences
	err := row.Scan(&p.UserID, &p.InAppEnabled, &p.PushEnabled, &p.TelegramEnabled,
		&p.Frequency, &p.MutedChallenges, &p.MutedUsers, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Preferences{}, ErrNoPreferences
		}
		return Preferences{}, err
	}
	return p, nil
}

// SavePreferences upserts the user's preferences.
func (r *PostgresRepository) SavePreferences(ctx context.Context, prefs Preferences) error {
	_, err := r.db.Exec(ctx, `INSERT INTO notification_preferences
        (user_id, in_app_enabled, push_enabled, telegram_enabled, frequency, muted_challenges, muted_users, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
        ON CONFLICT (user_id) DO UPDATE SET
            in_app_enabled = EXCLUDED.in_app_enabled,
            push_enabled = EXCLUDED.push_enabled,
            telegram_enabled = EXCLUDED.telegram_enabled,
            frequency = EXCLUDED.frequency,
            muted_challenges = EXCLUDED.muted_challenges,
            muted_users = EXCLUDED.muted_users,
            updated_at = NOW()`,
		prefs.UserID, prefs.InAppEnabled, prefs.PushEnabled, prefs.TelegramEnabled,
		prefs.Frequency, prefs.MutedChallenges, prefs.MutedUsers)
	return err
}
