// Deezer search client for resolving 30-second track previews.
//
// The search endpoint is anonymous, so no credentials are involved.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/genrify/internal/shared"
)

const deezerBaseURL = "https://api.deezer.com"

// DeezerTrack represents a track in a Deezer search result.
type DeezerTrack struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Preview string `json:"preview"`
	Artist  struct {
		Name string `json:"name"`
	} `json:"artist"`
	Album struct {
		Title string `json:"title"`
	} `json:"album"`
}

type deezerSearchResponse struct {
	Data []DeezerTrack `json:"data"`
}

// DeezerService implements [PreviewService] against the Deezer search API.
type DeezerService struct {
	baseURL    string
	httpClient *http.Client
}

// NewDeezerService creates a Deezer search client. A nil client gets a 10
// second timeout, matching the API's responsiveness expectations.
func NewDeezerService(baseURL string, client *http.Client) *DeezerService {
	if baseURL == "" {
		baseURL = deezerBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &DeezerService{
		baseURL:    baseURL,
		httpClient: client,
	}
}

// Search queries Deezer for "title artist" and returns the raw result list.
func (d *DeezerService) Search(ctx context.Context, query string) ([]DeezerTrack, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s", d.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var result deezerSearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.Data, nil
}

// PreviewURL returns the preview clip URL of the top search result that has
// one, or [shared.ErrTrackNotFound] when no result carries a preview.
func (d *DeezerService) PreviewURL(ctx context.Context, title, artist string) (string, error) {
	query := title
	if artist != "" {
		query = fmt.Sprintf("%s %s", title, artist)
	}

	tracks, err := d.Search(ctx, query)
	if err != nil {
		return "", err
	}

	for _, track := range tracks {
		if track.Preview != "" {
			return track.Preview, nil
		}
	}

	return "", fmt.Errorf("%w: no preview for '%s'", shared.ErrTrackNotFound, query)
}
