package models

import (
	"fmt"
	"time"
)

// Sort run status values.
const (
	SortRunRunning   = "running"
	SortRunCompleted = "completed"
	SortRunFailed    = "failed"
)

// SortRun records a single execution of the library sort: how many liked
// songs were processed and how they were distributed across genre playlists.
type SortRun struct {
	base
	status        string
	totalTracks   int
	sortedTracks  int
	skippedTracks int
	failedTracks  int
	genreCounts   map[string]int
	startedAt     time.Time
	finishedAt    *time.Time
}

// NewSortRun creates a sort run in the running state.
func NewSortRun(sequence int) *SortRun {
	return &SortRun{
		base:        newBase(sequence),
		status:      SortRunRunning,
		genreCounts: map[string]int{},
		startedAt:   time.Now(),
	}
}

func (s *SortRun) Status() string            { return s.status }
func (s *SortRun) TotalTracks() int          { return s.totalTracks }
func (s *SortRun) SortedTracks() int         { return s.sortedTracks }
func (s *SortRun) SkippedTracks() int        { return s.skippedTracks }
func (s *SortRun) FailedTracks() int         { return s.failedTracks }
func (s *SortRun) StartedAt() time.Time      { return s.startedAt }
func (s *SortRun) FinishedAt() *time.Time    { return s.finishedAt }
func (s *SortRun) GenreCounts() map[string]int {
	counts := make(map[string]int, len(s.genreCounts))
	for k, v := range s.genreCounts {
		counts[k] = v
	}
	return counts
}

func (s *SortRun) SetStatus(status string)          { s.status = status }
func (s *SortRun) SetStartedAt(t time.Time)         { s.startedAt = t }
func (s *SortRun) SetFinishedAt(t *time.Time)       { s.finishedAt = t }
func (s *SortRun) SetTotals(total, sorted, skipped, failed int) {
	s.totalTracks = total
	s.sortedTracks = sorted
	s.skippedTracks = skipped
	s.failedTracks = failed
}

func (s *SortRun) SetGenreCounts(counts map[string]int) {
	s.genreCounts = make(map[string]int, len(counts))
	for k, v := range counts {
		s.genreCounts[k] = v
	}
}

// Complete marks the run finished with the given status.
func (s *SortRun) Complete(status string) {
	now := time.Now()
	s.status = status
	s.finishedAt = &now
}

// Validate checks that the run has a known status.
func (s *SortRun) Validate() error {
	switch s.status {
	case SortRunRunning, SortRunCompleted, SortRunFailed:
		return nil
	default:
		return fmt.Errorf("invalid sort run status: %s", s.status)
	}
}
