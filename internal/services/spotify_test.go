package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"github.com/desertthunder/genrify/internal/shared"
	tu "github.com/desertthunder/genrify/internal/testing"
)

func testCredentials() map[string]string {
	return map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
	}
}

// authedService returns a service whose HTTP traffic flows through the given transport.
func authedService(t *testing.T, rt http.RoundTripper) *SpotifyService {
	t.Helper()

	srv, err := NewSpotifyService(testCredentials())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	srv.token = &oauth2.Token{AccessToken: "test_access_token"}
	srv.httpClient = &http.Client{Transport: rt}

	return srv
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestNewSpotifyService(t *testing.T) {
	t.Run("with valid credentials", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if srv.Name() != "Spotify" {
			t.Errorf("expected service name 'Spotify', got %s", srv.Name())
		}
	})

	t.Run("missing client_id", func(t *testing.T) {
		_, err := NewSpotifyService(map[string]string{"client_secret": "secret"})
		if err == nil {
			t.Error("expected error for missing client_id")
		}
	})

	t.Run("missing client_secret", func(t *testing.T) {
		_, err := NewSpotifyService(map[string]string{"client_id": "id"})
		if err == nil {
			t.Error("expected error for missing client_secret")
		}
	})

	t.Run("default redirect URI", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials())
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}
		if srv.config.RedirectURL != DefaultRedirectURI {
			t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
		}
	})
}

func TestGetAuthURL(t *testing.T) {
	srv, err := NewSpotifyService(testCredentials())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	authURL := srv.GetAuthURL("test_state")
	if !strings.Contains(authURL, "accounts.spotify.com") {
		t.Error("auth URL should contain Spotify domain")
	}
	if !strings.Contains(authURL, "test_client_id") {
		t.Error("auth URL should contain client_id")
	}
	if !strings.Contains(authURL, "test_state") {
		t.Error("auth URL should contain state")
	}
}

func TestOAuthenticate(t *testing.T) {
	srv, err := NewSpotifyService(testCredentials())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	t.Run("with valid token", func(t *testing.T) {
		err := srv.OAuthenticate(context.Background(), &oauth2.Token{AccessToken: "token"})
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("with nil token", func(t *testing.T) {
		if err := srv.OAuthenticate(context.Background(), nil); err == nil {
			t.Error("expected error for nil token")
		}
	})

	t.Run("with empty access token", func(t *testing.T) {
		if err := srv.OAuthenticate(context.Background(), &oauth2.Token{}); err == nil {
			t.Error("expected error for empty access token")
		}
	})
}

func TestLikedTracks(t *testing.T) {
	ctx := context.Background()

	t.Run("pages through library", func(t *testing.T) {
		next := `"https://api.spotify.com/v1/me/tracks?offset=50"`
		rt := tu.NewSequenceRoundTripper(
			jsonResponse(200, `{
				"items": [
					{"track": {"id": "t1", "name": "First", "artists": [{"name": "A"}], "duration_ms": 180000}},
					{"track": {"id": "t2", "name": "Second", "artists": [{"name": "B"}, {"name": "C"}], "duration_ms": 200000}}
				],
				"total": 3, "next": `+next+`
			}`),
			jsonResponse(200, `{
				"items": [
					{"track": {"id": "t3", "name": "Third", "artists": [{"name": "D"}]}}
				],
				"total": 3, "next": null
			}`),
		)
		srv := authedService(t, rt)

		tracks, err := srv.LikedTracks(ctx, 0)
		if err != nil {
			t.Fatalf("failed to fetch liked tracks: %v", err)
		}

		if len(tracks) != 3 {
			t.Fatalf("expected 3 tracks, got %d", len(tracks))
		}
		if len(rt.Requests) != 2 {
			t.Errorf("expected 2 requests, got %d", len(rt.Requests))
		}
		if tracks[0].Title != "First" {
			t.Errorf("expected First, got %s", tracks[0].Title)
		}
		if tracks[1].Artist != "B, C" {
			t.Errorf("expected joined artist names, got %s", tracks[1].Artist)
		}
		if tracks[0].Duration != 180 {
			t.Errorf("expected duration in seconds, got %d", tracks[0].Duration)
		}

		if got := rt.Requests[1].URL.Query().Get("offset"); got != "50" {
			t.Errorf("expected offset 50 on second page, got %s", got)
		}
	})

	t.Run("honors max", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(
			jsonResponse(200, `{
				"items": [
					{"track": {"id": "t1", "name": "First"}},
					{"track": {"id": "t2", "name": "Second"}},
					{"track": {"id": "t3", "name": "Third"}}
				],
				"total": 100, "next": "https://api.spotify.com/v1/me/tracks?offset=50"
			}`),
		)
		srv := authedService(t, rt)

		tracks, err := srv.LikedTracks(ctx, 2)
		if err != nil {
			t.Fatalf("failed to fetch liked tracks: %v", err)
		}

		if len(tracks) != 2 {
			t.Errorf("expected 2 tracks, got %d", len(tracks))
		}
		if len(rt.Requests) != 1 {
			t.Errorf("expected 1 request, got %d", len(rt.Requests))
		}
	})

	t.Run("expired token", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(jsonResponse(401, `{"error": {"status": 401}}`))
		srv := authedService(t, rt)

		_, err := srv.LikedTracks(ctx, 0)
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials())
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		if _, err := srv.LikedTracks(ctx, 0); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestAudioFeatures(t *testing.T) {
	ctx := context.Background()

	t.Run("filters null entries", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(
			jsonResponse(200, `{
				"audio_features": [
					{"id": "t1", "energy": 0.8, "danceability": 0.7},
					null,
					{"id": "t3", "energy": 0.2, "acousticness": 0.9}
				]
			}`),
		)
		srv := authedService(t, rt)

		features, err := srv.AudioFeatures(ctx, []string{"t1", "t2", "t3"})
		if err != nil {
			t.Fatalf("failed to fetch features: %v", err)
		}

		if len(features) != 2 {
			t.Fatalf("expected 2 feature sets, got %d", len(features))
		}
		if features[0].ID != "t1" || features[1].ID != "t3" {
			t.Errorf("unexpected feature IDs: %s, %s", features[0].ID, features[1].ID)
		}
		if features[0].Energy != 0.8 {
			t.Errorf("expected energy 0.8, got %f", features[0].Energy)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper()
		srv := authedService(t, rt)

		features, err := srv.AudioFeatures(ctx, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(features) != 0 {
			t.Errorf("expected no features, got %d", len(features))
		}
		if len(rt.Requests) != 0 {
			t.Errorf("expected no requests, got %d", len(rt.Requests))
		}
	})
}

func TestGetPlaylists(t *testing.T) {
	ctx := context.Background()

	rt := tu.NewSequenceRoundTripper(
		jsonResponse(200, `{
			"items": [
				{"id": "p1", "name": "Rock", "public": true, "tracks": {"total": 12}},
				{"id": "p2", "name": "Chill", "description": "low energy", "tracks": {"total": 3}}
			],
			"total": 2, "next": null
		}`),
	)
	srv := authedService(t, rt)

	playlists, err := srv.GetPlaylists(ctx)
	if err != nil {
		t.Fatalf("failed to fetch playlists: %v", err)
	}

	if len(playlists) != 2 {
		t.Fatalf("expected 2 playlists, got %d", len(playlists))
	}
	if playlists[0].Name != "Rock" || !playlists[0].Public {
		t.Errorf("unexpected first playlist: %+v", playlists[0])
	}
	if playlists[1].TrackCount != 3 {
		t.Errorf("expected track count 3, got %d", playlists[1].TrackCount)
	}
}

func TestPlaylistTrackIDs(t *testing.T) {
	ctx := context.Background()

	rt := tu.NewSequenceRoundTripper(
		jsonResponse(200, `{
			"items": [
				{"track": {"id": "t1"}},
				{"track": {"id": ""}},
				{"track": {"id": "t2"}}
			],
			"total": 3, "next": null
		}`),
	)
	srv := authedService(t, rt)

	ids, err := srv.PlaylistTrackIDs(ctx, "p1")
	if err != nil {
		t.Fatalf("failed to fetch playlist tracks: %v", err)
	}

	if len(ids) != 2 {
		t.Fatalf("expected 2 IDs, got %d", len(ids))
	}
	if ids[0] != "t1" || ids[1] != "t2" {
		t.Errorf("unexpected IDs: %v", ids)
	}
}

func TestCreatePlaylist(t *testing.T) {
	ctx := context.Background()

	rt := tu.NewSequenceRoundTripper(
		jsonResponse(200, `{"id": "user_1", "display_name": "Tester"}`),
		jsonResponse(201, `{"id": "p_new", "name": "Rock", "description": "Auto-created playlist for Rock songs", "public": false, "tracks": {"total": 0}}`),
	)
	srv := authedService(t, rt)

	playlist, err := srv.CreatePlaylist(ctx, "Rock", "Auto-created playlist for Rock songs", false)
	if err != nil {
		t.Fatalf("failed to create playlist: %v", err)
	}

	if playlist.ID != "p_new" {
		t.Errorf("expected p_new, got %s", playlist.ID)
	}
	if playlist.Name != "Rock" {
		t.Errorf("expected Rock, got %s", playlist.Name)
	}

	if len(rt.Requests) != 2 {
		t.Fatalf("expected profile lookup then create, got %d requests", len(rt.Requests))
	}
	if !strings.Contains(rt.Requests[1].URL.Path, "/users/user_1/playlists") {
		t.Errorf("unexpected create path: %s", rt.Requests[1].URL.Path)
	}
}

func TestAddTracks(t *testing.T) {
	ctx := context.Background()

	t.Run("posts track URIs", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(jsonResponse(201, `{"snapshot_id": "snap"}`))
		srv := authedService(t, rt)

		if err := srv.AddTracks(ctx, "p1", []string{"t1", "t2"}); err != nil {
			t.Fatalf("failed to add tracks: %v", err)
		}

		if len(rt.Requests) != 1 {
			t.Fatalf("expected 1 request, got %d", len(rt.Requests))
		}

		body, err := io.ReadAll(rt.Requests[0].Body)
		if err != nil {
			t.Fatalf("failed to read request body: %v", err)
		}

		var payload struct {
			URIs []string `json:"uris"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if len(payload.URIs) != 2 || payload.URIs[0] != "spotify:track:t1" {
			t.Errorf("unexpected URIs: %v", payload.URIs)
		}
	})

	t.Run("no-op with empty input", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper()
		srv := authedService(t, rt)

		if err := srv.AddTracks(ctx, "p1", nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(rt.Requests) != 0 {
			t.Errorf("expected no requests, got %d", len(rt.Requests))
		}
	})
}

func TestCurrentUserID(t *testing.T) {
	ctx := context.Background()

	rt := tu.NewSequenceRoundTripper(jsonResponse(200, `{"id": "user_1"}`))
	srv := authedService(t, rt)

	id, err := srv.CurrentUserID(ctx)
	if err != nil {
		t.Fatalf("failed to fetch user ID: %v", err)
	}
	if id != "user_1" {
		t.Errorf("expected user_1, got %s", id)
	}

	// Second lookup hits the cache, not the API.
	if _, err := srv.CurrentUserID(ctx); err != nil {
		t.Fatalf("cached lookup failed: %v", err)
	}
	if len(rt.Requests) != 1 {
		t.Errorf("expected 1 request, got %d", len(rt.Requests))
	}
}
