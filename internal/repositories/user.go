package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/genrify/internal/models"
	"github.com/desertthunder/genrify/internal/shared"
)

const userColumns = `id, sequence, spotify_id, display_name, created_at, updated_at, deleted_at`

// UserRepository implements models.Repository[*models.User] for the
// authenticated Spotify account.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new [models.User] into the database with generated ID and sequence
func (r *UserRepository) Create(user *models.User) error {
	sequence, err := NextSequence(r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	user.SetID(id)

	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO users (id, sequence, spotify_id, display_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		user.SpotifyID(),
		user.DisplayName(),
		user.CreatedAt(),
		user.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Get retrieves a user by ID, excluding soft-deleted users
func (r *UserRepository) Get(id string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = ? AND deleted_at IS NULL`, userColumns)

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetBySpotifyID retrieves a user by Spotify account ID
func (r *UserRepository) GetBySpotifyID(spotifyID string) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE spotify_id = ? AND deleted_at IS NULL`, userColumns)

	return r.scanOne(r.db.QueryRow(query, spotifyID))
}

// Update modifies an existing user in the database
func (r *UserRepository) Update(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	user.SetUpdatedAt(now)

	query := `
		UPDATE users
		SET display_name = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, user.DisplayName(), now, user.ID())
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found or already deleted: %s", user.ID())
	}

	return nil
}

// Delete soft-deletes a user by ID
func (r *UserRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE users
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all users, excluding soft-deleted users
func (r *UserRepository) List(criteria map[string]any) ([]*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE deleted_at IS NULL ORDER BY sequence ASC`, userColumns)

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

// scanUser scans a single row into a [models.User]
func (r *UserRepository) scanUser(row rowScanner) (*models.User, error) {
	var (
		id          string
		sequence    int
		spotifyID   string
		displayName string
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := row.Scan(&id, &sequence, &spotifyID, &displayName, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	user := models.NewUser(sequence, spotifyID, displayName)
	user.SetID(id)
	user.SetCreatedAt(createdAt)
	user.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		user.SetDeletedAt(&deletedAt.Time)
	}

	return user, nil
}

// scanOne scans a single [sql.Row] into a [models.User]
func (r *UserRepository) scanOne(row *sql.Row) (*models.User, error) {
	user, err := r.scanUser(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

// scanRow scans a row from [sql.Rows] into a [models.User]
func (r *UserRepository) scanRow(rows *sql.Rows) (*models.User, error) {
	user, err := r.scanUser(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}
