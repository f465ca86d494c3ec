// Remote classifier client for a hosted genre-prediction model server.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/genrify/internal/models"
	"github.com/desertthunder/genrify/internal/shared"
)

// RemoteClassifier posts feature vectors to a model server's /predict
// endpoint and maps the returned label to a canonical [Genre].
type RemoteClassifier struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteClassifier creates a model-server client.
func NewRemoteClassifier(baseURL string, client *http.Client) *RemoteClassifier {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &RemoteClassifier{
		baseURL:    baseURL,
		httpClient: client,
	}
}

func (c *RemoteClassifier) Name() string { return "remote" }

type predictRequest struct {
	TrackID  string               `json:"track_id,omitempty"`
	Features models.AudioFeatures `json:"features"`
}

type predictResponse struct {
	Genre      string  `json:"genre"`
	Confidence float64 `json:"confidence"`
}

// Classify posts the track's features to the model server.
func (c *RemoteClassifier) Classify(ctx context.Context, track models.Track, features models.AudioFeatures) (Genre, error) {
	payload, err := json.Marshal(predictRequest{TrackID: track.ID, Features: features})
	if err != nil {
		return "", fmt.Errorf("failed to encode features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: model server status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var prediction predictResponse
	if err := json.Unmarshal(body, &prediction); err != nil {
		return "", fmt.Errorf("failed to decode prediction: %w", err)
	}

	if prediction.Genre == "" {
		return "", fmt.Errorf("%w: empty prediction", shared.ErrAPIRequest)
	}

	return CanonicalGenre(prediction.Genre), nil
}

// Health reports whether the model server is reachable and ready.
func (c *RemoteClassifier) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}

	return nil
}
