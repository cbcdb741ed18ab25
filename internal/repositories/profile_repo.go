package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jcastano/atelier/internal/database"
	"github.com/jcastano/atelier/internal/models"
)

// ProfileRepository is the authoritative store for profile data, including
// the admin flag. Authorization decisions read from here, never from token
// claims.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{pool: db.Pool}
}

func scanProfileRow(scanner rowScanner) (*models.Profile, error) {
	var p models.Profile
	var name, avatarURL *string

	err := scanner.Scan(
		&p.ID, &p.Email, &name, &avatarURL, &p.Admin,
		&p.EmailVerified, &p.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if name != nil {
		p.Name = *name
	}
	if avatarURL != nil {
		p.AvatarURL = *avatarURL
	}

	return &p, nil
}

// Email verification state lives with the account, so profile reads join
// the users table.
const profileSelect = `
	SELECT p.user_id, u.email, p.name, p.avatar_url, p.admin, u.email_verified, p.created_at
	FROM profiles p
	JOIN users u ON u.id = p.user_id
`

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	query := profileSelect + ` WHERE p.user_id = $1`
	return scanProfileRow(r.pool.QueryRow(ctx, query, userID))
}

// GetOrCreate returns the profile, creating an empty non-admin row first
// if the user has none yet. Existing rows are never overwritten.
func (r *ProfileRepository) GetOrCreate(ctx context.Context, userID string) (*models.Profile, error) {
	now := time.Now()
	insert := `
		INSERT INTO profiles (user_id, admin, created_at, updated_at)
		VALUES ($1, false, $2, $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, insert, userID, now); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return r.GetByUserID(ctx, userID)
}

// Update writes the user-editable fields. The admin flag is not on this
// path.
func (r *ProfileRepository) Update(ctx context.Context, userID string, name, avatarURL string) (*models.Profile, error) {
	query := `
		UPDATE profiles SET name = $1, avatar_url = $2, updated_at = $3
		WHERE user_id = $4
	`

	var namePtr, avatarPtr *string
	if name != "" {
		namePtr = &name
	}
	if avatarURL != "" {
		avatarPtr = &avatarURL
	}

	result, err := r.pool.Exec(ctx, query, namePtr, avatarPtr, time.Now(), userID)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return nil, models.ErrNotFound
	}

	return r.GetByUserID(ctx, userID)
}

// IsAdmin reports the stored admin flag. Missing profile maps to
// ErrNotFound so the middleware can deny cleanly.
func (r *ProfileRepository) IsAdmin(ctx context.Context, userID string) (bool, error) {
	query := `SELECT admin FROM profiles WHERE user_id = $1`

	var admin bool
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&admin); err != nil {
		return false, database.MapPostgresError(err)
	}
	return admin, nil
}

// SetAdmin flips the admin flag, used by the bootstrap path that promotes
// the configured admin account on startup.
func (r *ProfileRepository) SetAdmin(ctx context.Context, userID string, admin bool) error {
	query := `UPDATE profiles SET admin = $1, updated_at = $2 WHERE user_id = $3`

	result, err := r.pool.Exec(ctx, query, admin, time.Now(), userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
