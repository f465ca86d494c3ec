// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/genrify/internal/models"
)

// MockService is a configurable test double for [services.Service].
//
// Zero value behaves like an authenticated service with an empty library.
// Set the function fields to script behavior per test; unset fields fall back
// to the recorded state below.
type MockService struct {
	UserID    string
	Tracks    []models.Track
	Features  []models.AudioFeatures
	Playlists []models.Playlist

	// PlaylistTracks maps playlist ID to contained track IDs.
	PlaylistTracks map[string][]string

	// Created records playlists created through CreatePlaylist.
	Created []models.Playlist
	// Added records track IDs added per playlist ID.
	Added map[string][]string

	AuthenticateFunc  func(ctx context.Context, credentials map[string]string) error
	LikedTracksFunc   func(ctx context.Context, max int) ([]models.Track, error)
	AudioFeaturesFunc func(ctx context.Context, trackIDs []string) ([]models.AudioFeatures, error)
	CreateFunc        func(ctx context.Context, name, description string, public bool) (*models.Playlist, error)
	AddTracksFunc     func(ctx context.Context, playlistID string, trackIDs []string) error
}

func (m *MockService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, credentials)
	}
	return nil
}

func (m *MockService) CurrentUserID(ctx context.Context) (string, error) {
	if m.UserID == "" {
		return "mock_user", nil
	}
	return m.UserID, nil
}

func (m *MockService) LikedTracks(ctx context.Context, max int) ([]models.Track, error) {
	if m.LikedTracksFunc != nil {
		return m.LikedTracksFunc(ctx, max)
	}
	if max > 0 && max < len(m.Tracks) {
		return m.Tracks[:max], nil
	}
	return m.Tracks, nil
}

func (m *MockService) AudioFeatures(ctx context.Context, trackIDs []string) ([]models.AudioFeatures, error) {
	if m.AudioFeaturesFunc != nil {
		return m.AudioFeaturesFunc(ctx, trackIDs)
	}

	byID := make(map[string]models.AudioFeatures, len(m.Features))
	for _, f := range m.Features {
		byID[f.ID] = f
	}

	var features []models.AudioFeatures
	for _, id := range trackIDs {
		if f, ok := byID[id]; ok {
			features = append(features, f)
		}
	}
	return features, nil
}

func (m *MockService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return m.Playlists, nil
}

func (m *MockService) PlaylistTrackIDs(ctx context.Context, playlistID string) ([]string, error) {
	return m.PlaylistTracks[playlistID], nil
}

func (m *MockService) CreatePlaylist(ctx context.Context, name, description string, public bool) (*models.Playlist, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, name, description, public)
	}

	playlist := models.Playlist{
		ID:          "mock_playlist_" + name,
		Name:        name,
		Description: description,
		Public:      public,
	}
	m.Created = append(m.Created, playlist)
	m.Playlists = append(m.Playlists, playlist)
	return &playlist, nil
}

func (m *MockService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if m.AddTracksFunc != nil {
		return m.AddTracksFunc(ctx, playlistID, trackIDs)
	}
	if m.Added == nil {
		m.Added = map[string][]string{}
	}
	m.Added[playlistID] = append(m.Added[playlistID], trackIDs...)
	return nil
}

func (m *MockService) Name() string { return "mock" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// SequenceRoundTripper returns queued responses in order, repeating the last
// one once the queue is drained. Used for paginated API tests.
type SequenceRoundTripper struct {
	responses []*http.Response
	index     int

	// Requests records every request seen, in order.
	Requests []*http.Request
}

func NewSequenceRoundTripper(responses ...*http.Response) *SequenceRoundTripper {
	return &SequenceRoundTripper{responses: responses}
}

func (s *SequenceRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	s.Requests = append(s.Requests, r)
	if len(s.responses) == 0 {
		return nil, errors.New("no responses queued")
	}
	resp := s.responses[s.index]
	if s.index < len(s.responses)-1 {
		s.index++
	}
	return resp, nil
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
