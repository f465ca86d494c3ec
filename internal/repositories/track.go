package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/genrify/internal/models"
	"github.com/desertthunder/genrify/internal/shared"
)

const trackColumns = `id, sequence, service_id, title, artist, album, duration, isrc, genre,
		danceability, energy, valence, speechiness, acousticness, instrumentalness, liveness, loudness, tempo,
		created_at, updated_at, deleted_at`

// TrackRepository implements models.Repository[*models.PersistedTrack] for the
// liked-song cache.
//
// Tracks are cached as they are fetched so repeat sorts can report what changed
// and so classification results survive restarts.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a new [models.PersistedTrack] into the database with generated ID and sequence
func (r *TrackRepository) Create(track *models.PersistedTrack) error {
	sequence, err := NextSequence(r.db, "tracks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	track.SetID(id)

	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	features := track.Features()

	query := `
		INSERT INTO tracks (id, sequence, service_id, title, artist, album, duration, isrc, genre,
			danceability, energy, valence, speechiness, acousticness, instrumentalness, liveness, loudness, tempo,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		track.ServiceID(),
		track.Title(),
		track.Artist(),
		track.Album(),
		track.Duration(),
		track.ISRC(),
		track.Genre(),
		features.Danceability,
		features.Energy,
		features.Valence,
		features.Speechiness,
		features.Acousticness,
		features.Instrumentalness,
		features.Liveness,
		features.Loudness,
		features.Tempo,
		track.CreatedAt(),
		track.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}

	return nil
}

// Get retrieves a track by ID, excluding soft-deleted tracks
func (r *TrackRepository) Get(id string) (*models.PersistedTrack, error) {
	query := fmt.Sprintf(`SELECT %s FROM tracks WHERE id = ? AND deleted_at IS NULL`, trackColumns)

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByServiceID retrieves a track by its Spotify track ID
func (r *TrackRepository) GetByServiceID(serviceID string) (*models.PersistedTrack, error) {
	query := fmt.Sprintf(`SELECT %s FROM tracks WHERE service_id = ? AND deleted_at IS NULL`, trackColumns)

	return r.scanOne(r.db.QueryRow(query, serviceID))
}

// GetByISRC retrieves a track by ISRC code
func (r *TrackRepository) GetByISRC(isrc string) (*models.PersistedTrack, error) {
	query := fmt.Sprintf(`SELECT %s FROM tracks WHERE isrc = ? AND deleted_at IS NULL LIMIT 1`, trackColumns)

	return r.scanOne(r.db.QueryRow(query, isrc))
}

// Update modifies an existing track, including its genre and audio features
func (r *TrackRepository) Update(track *models.PersistedTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	track.SetUpdatedAt(now)

	features := track.Features()

	query := `
		UPDATE tracks
		SET title = ?, artist = ?, album = ?, duration = ?, isrc = ?, genre = ?,
			danceability = ?, energy = ?, valence = ?, speechiness = ?, acousticness = ?,
			instrumentalness = ?, liveness = ?, loudness = ?, tempo = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		track.Title(),
		track.Artist(),
		track.Album(),
		track.Duration(),
		track.ISRC(),
		track.Genre(),
		features.Danceability,
		features.Energy,
		features.Valence,
		features.Speechiness,
		features.Acousticness,
		features.Instrumentalness,
		features.Liveness,
		features.Loudness,
		features.Tempo,
		now,
		track.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("track not found or already deleted: %s", track.ID())
	}

	return nil
}

// Delete soft-deletes a track by ID
func (r *TrackRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE tracks
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("track not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all tracks matching the given criteria, excluding soft-deleted tracks.
//
// Supported criteria: genre, isrc.
func (r *TrackRepository) List(criteria map[string]any) ([]*models.PersistedTrack, error) {
	query := fmt.Sprintf(`SELECT %s FROM tracks WHERE deleted_at IS NULL`, trackColumns)

	args := []any{}

	if genre, ok := criteria["genre"].(string); ok && genre != "" {
		query += " AND genre = ?"
		args = append(args, genre)
	}

	if isrc, ok := criteria["isrc"].(string); ok && isrc != "" {
		query += " AND isrc = ?"
		args = append(args, isrc)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.PersistedTrack
	for rows.Next() {
		track, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// CountByGenre returns the number of cached tracks per genre label.
func (r *TrackRepository) CountByGenre() (map[string]int, error) {
	query := `
		SELECT genre, COUNT(*) FROM tracks
		WHERE deleted_at IS NULL AND genre != ''
		GROUP BY genre
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to count tracks: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var genre string
		var count int
		if err := rows.Scan(&genre, &count); err != nil {
			return nil, fmt.Errorf("failed to scan genre count: %w", err)
		}
		counts[genre] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return counts, nil
}

// scanTrack scans a single row into a [models.PersistedTrack]
func (r *TrackRepository) scanTrack(row rowScanner) (*models.PersistedTrack, error) {
	var (
		id        string
		sequence  int
		serviceID string
		title     string
		artist    string
		album     string
		duration  int
		isrc      string
		genre     string
		features  models.AudioFeatures
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &serviceID, &title, &artist, &album, &duration, &isrc, &genre,
		&features.Danceability, &features.Energy, &features.Valence, &features.Speechiness,
		&features.Acousticness, &features.Instrumentalness, &features.Liveness, &features.Loudness, &features.Tempo,
		&createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	dto := models.Track{
		ID:       serviceID,
		Title:    title,
		Artist:   artist,
		Album:    album,
		Duration: duration,
		ISRC:     isrc,
	}

	features.ID = serviceID

	track := models.NewPersistedTrack(sequence, serviceID, dto)
	track.SetID(id)
	track.SetGenre(genre)
	track.SetFeatures(features)
	track.SetCreatedAt(createdAt)
	track.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		track.SetDeletedAt(&deletedAt.Time)
	}

	return track, nil
}

// scanOne scans a single [sql.Row] into a [models.PersistedTrack]
func (r *TrackRepository) scanOne(row *sql.Row) (*models.PersistedTrack, error) {
	track, err := r.scanTrack(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("track not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}
	return track, nil
}

// scanRow scans a row from [sql.Rows] into a [models.PersistedTrack]
func (r *TrackRepository) scanRow(rows *sql.Rows) (*models.PersistedTrack, error) {
	track, err := r.scanTrack(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}
	return track, nil
}
