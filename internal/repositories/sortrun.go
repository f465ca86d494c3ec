package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/genrify/internal/models"
	"github.com/desertthunder/genrify/internal/shared"
)

const sortRunColumns = `id, sequence, status, total_tracks, sorted_tracks, skipped_tracks, failed_tracks,
		genre_counts, started_at, finished_at, created_at, updated_at, deleted_at`

// SortRunRepository implements models.Repository[*models.SortRun] for sort run history.
//
// Genre counts are stored as a JSON object keyed by genre label.
type SortRunRepository struct {
	db *sql.DB
}

// NewSortRunRepository creates a new SortRunRepository with the given database connection
func NewSortRunRepository(db *sql.DB) *SortRunRepository {
	return &SortRunRepository{db: db}
}

// Create inserts a new [models.SortRun] into the database with generated ID and sequence
func (r *SortRunRepository) Create(run *models.SortRun) error {
	sequence, err := NextSequence(r.db, "sort_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	counts, err := json.Marshal(run.GenreCounts())
	if err != nil {
		return fmt.Errorf("failed to encode genre counts: %w", err)
	}

	query := `
		INSERT INTO sort_runs (id, sequence, status, total_tracks, sorted_tracks, skipped_tracks, failed_tracks,
			genre_counts, started_at, finished_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		run.Status(),
		run.TotalTracks(),
		run.SortedTracks(),
		run.SkippedTracks(),
		run.FailedTracks(),
		string(counts),
		run.StartedAt(),
		run.FinishedAt(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sort run: %w", err)
	}

	return nil
}

// Get retrieves a sort run by ID, excluding soft-deleted runs
func (r *SortRunRepository) Get(id string) (*models.SortRun, error) {
	query := fmt.Sprintf(`SELECT %s FROM sort_runs WHERE id = ? AND deleted_at IS NULL`, sortRunColumns)

	return r.scanOne(r.db.QueryRow(query, id))
}

// Latest retrieves the most recently started sort run
func (r *SortRunRepository) Latest() (*models.SortRun, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM sort_runs
		WHERE deleted_at IS NULL
		ORDER BY started_at DESC
		LIMIT 1`, sortRunColumns)

	return r.scanOne(r.db.QueryRow(query))
}

// Update modifies an existing sort run in the database
func (r *SortRunRepository) Update(run *models.SortRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	counts, err := json.Marshal(run.GenreCounts())
	if err != nil {
		return fmt.Errorf("failed to encode genre counts: %w", err)
	}

	query := `
		UPDATE sort_runs
		SET status = ?, total_tracks = ?, sorted_tracks = ?, skipped_tracks = ?, failed_tracks = ?,
			genre_counts = ?, finished_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		run.Status(),
		run.TotalTracks(),
		run.SortedTracks(),
		run.SkippedTracks(),
		run.FailedTracks(),
		string(counts),
		run.FinishedAt(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sort run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("sort run not found or already deleted: %s", run.ID())
	}

	return nil
}

// Delete soft-deletes a sort run by ID
func (r *SortRunRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE sort_runs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete sort run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("sort run not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all sort runs matching the given criteria, newest first.
//
// Supported criteria: status.
func (r *SortRunRepository) List(criteria map[string]any) ([]*models.SortRun, error) {
	query := fmt.Sprintf(`SELECT %s FROM sort_runs WHERE deleted_at IS NULL`, sortRunColumns)

	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY started_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sort runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SortRun
	for rows.Next() {
		run, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// scanSortRun scans a single row into a [models.SortRun]
func (r *SortRunRepository) scanSortRun(row rowScanner) (*models.SortRun, error) {
	var (
		id            string
		sequence      int
		status        string
		totalTracks   int
		sortedTracks  int
		skippedTracks int
		failedTracks  int
		genreCounts   string
		startedAt     time.Time
		finishedAt    sql.NullTime
		createdAt     time.Time
		updatedAt     time.Time
		deletedAt     sql.NullTime
	)

	err := row.Scan(&id, &sequence, &status, &totalTracks, &sortedTracks, &skippedTracks, &failedTracks,
		&genreCounts, &startedAt, &finishedAt, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	if genreCounts != "" {
		if err := json.Unmarshal([]byte(genreCounts), &counts); err != nil {
			return nil, fmt.Errorf("failed to decode genre counts: %w", err)
		}
	}

	run := models.NewSortRun(sequence)
	run.SetID(id)
	run.SetStatus(status)
	run.SetTotals(totalTracks, sortedTracks, skippedTracks, failedTracks)
	run.SetGenreCounts(counts)
	run.SetStartedAt(startedAt)
	if finishedAt.Valid {
		run.SetFinishedAt(&finishedAt.Time)
	}
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}

// scanOne scans a single [sql.Row] into a [models.SortRun]
func (r *SortRunRepository) scanOne(row *sql.Row) (*models.SortRun, error) {
	run, err := r.scanSortRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sort run not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sort run: %w", err)
	}
	return run, nil
}

// scanRow scans a row from [sql.Rows] into a [models.SortRun]
func (r *SortRunRepository) scanRow(rows *sql.Rows) (*models.SortRun, error) {
	run, err := r.scanSortRun(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan sort run: %w", err)
	}
	return run, nil
}
