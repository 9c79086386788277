package challenge

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates no challenge matched the id.
	ErrNotFound = errors.New("challenge not found")

	// ErrAlreadyJoined indicates the user already holds a side.
	ErrAlreadyJoined = errors.New("already joined")
)

// Repository persists challenges and their participants.
type Repository interface {
	Create(ctx context.Context, ch Challenge) error
	Get(ctx context.Context, id string) (Challenge, error)
	Update(ctx context.Context, ch Challenge) error
	List(ctx context.Context, status Status, limit int) ([]Challenge, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]Challenge, error)
	AddParticipant(ctx context.Context, p Participant) error
	Participants(ctx context.Context, challengeID string) ([]Participant, error)
	HasParticipant(ctx context.Context, challengeID, userID string) (bool, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed challenge repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const challengeColumns = `id, challenger_id, challenged_id, title, description, category, stake,
        status, admin_created, due_date, pinned, bonus_amount, participant_count, winner_id,
        created_at, updated_at`

// Create inserts a new challenge.
func (r *PostgresRepository) Create(ctx context.Context, ch Challenge) error {
	_, err := r.db.Exec(ctx, `INSERT INTO challenges (`+challengeColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		ch.ID, ch.ChallengerID, ch.ChallengedID, ch.Title, ch.Description, ch.Category,
		ch.Stake, ch.Status, ch.AdminCreated, ch.DueDate.UTC(), ch.Pinned, ch.BonusAmount,
		ch.ParticipantCount, ch.WinnerID, ch.CreatedAt.UTC(), ch.UpdatedAt.UTC())
	return err
}

// Get fetches a challenge by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Challenge, error) {
	row := r.db.QueryRow(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id)
	return scanChallenge(row)
}

// Update persists the mutable challenge fields.
func (r *PostgresRepository) Update(ctx context.Context, ch Challenge) error {
	cmd, err := r.db.Exec(ctx, `UPDATE challenges
        SET status = $1, pinned = $2, participant_count = $3, winner_id = $4, updated_at = NOW()
        WHERE id = $5`,
		ch.Status, ch.Pinned, ch.ParticipantCount, ch.WinnerID, ch.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns recent challenges, optionally filtered by status. Pinned
// challenges sort first.
func (r *PostgresRepository) List(ctx context.Context, status Status, limit int) ([]Challenge, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + challengeColumns + ` FROM challenges
        ORDER BY pinned DESC, created_at DESC LIMIT $1`
	args := []any{limit}
	if status != "" {
		query = `SELECT ` + challengeColumns + ` FROM challenges WHERE status = $1
            ORDER BY pinned DESC, created_at DESC LIMIT $2`
		args = []any{status, limit}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectChallenges(rows)
}

// ListForUser returns challenges where the user is challenger or challenged.
func (r *PostgresRepository) ListForUser(ctx context.Context, userID string, limit int) ([]Challenge, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT `+challengeColumns+` FROM challenges
        WHERE challenger_id = $1 OR challenged_id = $1
        ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectChallenges(rows)
}

// AddParticipant records a join and bumps the participant count.
func (r *PostgresRepository) AddParticipant(ctx context.Context, p Participant) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `INSERT INTO challenge_participants (challenge_id, user_id, side, stake, joined_at)
        VALUES ($1, $2, $3, $4, $5)`,
		p.ChallengeID, p.UserID, p.Side, p.Stake, p.JoinedAt.UTC()); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE challenges
        SET participant_count = participant_count + 1, updated_at = NOW() WHERE id = $1`,
		p.ChallengeID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Participants lists everyone who joined the challenge.
func (r *PostgresRepository) Participants(ctx context.Context, challengeID string) ([]Participant, error) {
	rows, err := r.db.Query(ctx, `SELECT challenge_id, user_id, side, stake, joined_at
        FROM challenge_participants WHERE challenge_id = $1 ORDER BY joined_at`, challengeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.ChallengeID, &p.UserID, &p.Side, &p.Stake, &p.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// HasParticipant reports whether the user already joined.
func (r *PostgresRepository) HasParticipant(ctx context.Context, challengeID, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
        SELECT 1 FROM challenge_participants WHERE challenge_id = $1 AND user_id = $2)`,
		challengeID, userID).Scan(&exists)
	return exists, err
}

func scanChallenge(row pgx.Row) (Challenge, error) {
	var ch Challenge
	err := row.Scan(&ch.ID, &ch.ChallengerID, &ch.ChallengedID, &ch.Title, &ch.Description,
		&ch.Category, &ch.Stake, &ch.Status, &ch.AdminCreated, &ch.DueDate, &ch.Pinned,
		&ch.BonusAmount, &ch.ParticipantCount, &ch.WinnerID, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Challenge{}, ErrNotFound
		}
		return Challenge{}, err
	}
	return ch, nil
}

func collectChallenges(rows pgx.Rows) ([]Challenge, error) {
	var out []Challenge
	for rows.Next() {
		ch, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}
