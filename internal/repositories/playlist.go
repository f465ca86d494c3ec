package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/genrify/internal/models"
	"github.com/desertthunder/genrify/internal/shared"
)

const playlistColumns = `id, sequence, service_id, name, genre, description, public, track_count,
		created_at, updated_at, deleted_at`

// PlaylistRepository implements models.Repository[*models.PersistedPlaylist]
// for the genre-to-playlist mapping.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new [models.PersistedPlaylist] into the database with generated ID and sequence
func (r *PlaylistRepository) Create(playlist *models.PersistedPlaylist) error {
	sequence, err := NextSequence(r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	playlist.SetID(id)

	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO playlists (id, sequence, service_id, name, genre, description, public, track_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		playlist.ServiceID(),
		playlist.Name(),
		playlist.Genre(),
		playlist.Description(),
		playlist.Public(),
		playlist.TrackCount(),
		playlist.CreatedAt(),
		playlist.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

// Get retrieves a playlist by ID, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(id string) (*models.PersistedPlaylist, error) {
	query := fmt.Sprintf(`SELECT %s FROM playlists WHERE id = ? AND deleted_at IS NULL`, playlistColumns)

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByServiceID retrieves a playlist by its Spotify playlist ID
func (r *PlaylistRepository) GetByServiceID(serviceID string) (*models.PersistedPlaylist, error) {
	query := fmt.Sprintf(`SELECT %s FROM playlists WHERE service_id = ? AND deleted_at IS NULL`, playlistColumns)

	return r.scanOne(r.db.QueryRow(query, serviceID))
}

// GetByGenre retrieves the playlist mapped to a genre label
func (r *PlaylistRepository) GetByGenre(genre string) (*models.PersistedPlaylist, error) {
	query := fmt.Sprintf(`SELECT %s FROM playlists WHERE genre = ? AND deleted_at IS NULL LIMIT 1`, playlistColumns)

	return r.scanOne(r.db.QueryRow(query, genre))
}

// Update modifies an existing playlist in the database
func (r *PlaylistRepository) Update(playlist *models.PersistedPlaylist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	playlist.SetUpdatedAt(now)

	query := `
		UPDATE playlists
		SET name = ?, genre = ?, description = ?, public = ?, track_count = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		playlist.Name(),
		playlist.Genre(),
		playlist.Description(),
		playlist.Public(),
		playlist.TrackCount(),
		now,
		playlist.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("playlist not found or already deleted: %s", playlist.ID())
	}

	return nil
}

// Delete soft-deletes a playlist by ID
func (r *PlaylistRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE playlists
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("playlist not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all playlists matching the given criteria, excluding soft-deleted playlists.
//
// Supported criteria: genre.
func (r *PlaylistRepository) List(criteria map[string]any) ([]*models.PersistedPlaylist, error) {
	query := fmt.Sprintf(`SELECT %s FROM playlists WHERE deleted_at IS NULL`, playlistColumns)

	args := []any{}

	if genre, ok := criteria["genre"].(string); ok && genre != "" {
		query += " AND genre = ?"
		args = append(args, genre)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.PersistedPlaylist
	for rows.Next() {
		playlist, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// scanPlaylist scans a single row into a [models.PersistedPlaylist]
func (r *PlaylistRepository) scanPlaylist(row rowScanner) (*models.PersistedPlaylist, error) {
	var (
		id          string
		sequence    int
		serviceID   string
		name        string
		genre       string
		description string
		public      bool
		trackCount  int
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := row.Scan(&id, &sequence, &serviceID, &name, &genre, &description, &public, &trackCount,
		&createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	dto := models.Playlist{
		ID:          serviceID,
		Name:        name,
		Description: description,
		TrackCount:  trackCount,
		Public:      public,
	}

	playlist := models.NewPersistedPlaylist(sequence, serviceID, genre, dto)
	playlist.SetID(id)
	playlist.SetCreatedAt(createdAt)
	playlist.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		playlist.SetDeletedAt(&deletedAt.Time)
	}

	return playlist, nil
}

// scanOne scans a single [sql.Row] into a [models.PersistedPlaylist]
func (r *PlaylistRepository) scanOne(row *sql.Row) (*models.PersistedPlaylist, error) {
	playlist, err := r.scanPlaylist(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("playlist not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}
	return playlist, nil
}

// scanRow scans a row from [sql.Rows] into a [models.PersistedPlaylist]
func (r *PlaylistRepository) scanRow(rows *sql.Rows) (*models.PersistedPlaylist, error) {
	playlist, err := r.scanPlaylist(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}
	return playlist, nil
}
