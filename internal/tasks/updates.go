package tasks

import (
	"fmt"

	"github.com/desertthunder/genrify/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchLiked Phase = iota
	FetchFeatures
	ClassifyTracks
	EnsurePlaylists
	AddTracks
	Done
)

func (p Phase) String() string {
	switch p {
	case FetchLiked:
		return "fetch_liked"
	case FetchFeatures:
		return "fetch_features"
	case ClassifyTracks:
		return "classify_tracks"
	case EnsurePlaylists:
		return "ensure_playlists"
	case AddTracks:
		return "add_tracks"
	case Done:
		return "done"
	default:
		return ""
	}
}

func fetchLikedUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLiked,
		Step:    step,
		Total:   total,
		Message: "Fetching liked songs from Spotify...",
	}
}

func likedFetchedUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLiked,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d liked songs", count),
	}
}

func fetchFeaturesUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFeatures,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Fetching audio features (batch %d/%d)...", step, total),
	}
}

func classifyUpdate(step, total int, tr *models.Track, genre string) ProgressUpdate {
	if tr == nil {
		return ProgressUpdate{
			Phase:   ClassifyTracks,
			Step:    step,
			Total:   total,
			Message: "Classifying tracks...",
		}
	}
	return ProgressUpdate{
		Phase:   ClassifyTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s → %s", step, total, tr.Artist, tr.Title, genre),
	}
}

func ensurePlaylistUpdate(step, total int, genre string, created bool) ProgressUpdate {
	verb := "Found"
	if created {
		verb = "Created"
	}
	return ProgressUpdate{
		Phase:   EnsurePlaylists,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("%s playlist for %s", verb, genre),
	}
}

func addTracksUpdate(step, total int, genre string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Adding %d tracks to %s", step, total, count, genre),
	}
}

func doneUpdate(result *SortResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Sorted %d of %d tracks into %d playlists", result.AddedTracks, result.TotalTracks, len(result.Buckets)),
		Data:    result,
	}
}
