package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no user matched the lookup key.
var ErrNotFound = errors.New("user not found")

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	LinkTelegram(ctx context.Context, id, telegramID, telegramUsername string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed user repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, password, first_name, last_name, username, profile_image,
        is_admin, telegram_id, telegram_username, telegram_linked, created_at, updated_at`

// Create inserts a new user record.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	_, err := r.db.Exec(ctx, `INSERT INTO users (`+userColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		user.ID, user.Email, user.Password, user.FirstName, user.LastName, user.Username,
		user.ProfileImage, user.Admin, user.TelegramID, user.TelegramUsername,
		user.TelegramLinked, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	return err
}

// FindByID fetches a user by the provider subject id.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// FindByEmail fetches a user by email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// LinkTelegram records the telegram linkage for a user.
func (r *PostgresRepository) LinkTelegram(ctx context.Context, id, telegramID, telegramUsername string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users
        SET telegram_id = $1, telegram_username = $2, telegram_linked = TRUE, updated_at = NOW()
        WHERE id = $3`, telegramID, telegramUsername, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u         User
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &u.Username,
		&u.ProfileImage, &u.Admin, &u.TelegramID, &u.TelegramUsername, &u.TelegramLinked,
		&createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.CreatedAt = createdAt.UTC()
	u.UpdatedAt = updatedAt.UTC()
	return u, nil
}
