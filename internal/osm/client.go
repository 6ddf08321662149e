package osm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Unbanked0/btcmap-api/internal/domain"
)

// DefaultAPIURL is the main OSM API endpoint.
const DefaultAPIURL = "https://api.openstreetmap.org"

// ErrNotFound is returned when the API reports an element or user as
// missing or gone.
var ErrNotFound = errors.New("osm: not found")

// Client talks to the OSM API proper: single-element verification
// fetches and user profile lookups.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates an OSM API client. The timeout bounds each call.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

// Element fetches the single current version of one element, used as the
// secondary authority during the deletion pass.
func (c *Client) Element(ctx context.Context, kind string, ref int64) (domain.OsmJSON, error) {
	endpoint := fmt.Sprintf("%s/api/0.6/%s/%d.json", c.baseURL, kind, ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build element request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch element %s:%d: %w", kind, ref, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return nil, fmt.Errorf("element %s:%d: %w", kind, ref, ErrNotFound)
	default:
		return nil, fmt.Errorf("osm returned status %d for element %s:%d", res.StatusCode, kind, ref)
	}

	var body struct {
		Elements []domain.OsmJSON `json:"elements"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode element response: %w", err)
	}
	if len(body.Elements) == 0 {
		return nil, fmt.Errorf("element %s:%d: %w", kind, ref, ErrNotFound)
	}
	return body.Elements[0], nil
}

// User fetches one user's public profile.
func (c *Client) User(ctx context.Context, id int64) (domain.OsmJSON, error) {
	endpoint := fmt.Sprintf("%s/api/0.6/user/%d.json", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build user request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %d: %w", id, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	default:
		return nil, fmt.Errorf("osm returned status %d for user %d", res.StatusCode, id)
	}

	var body struct {
		User domain.OsmJSON `json:"user"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}
	if body.User == nil {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return body.User, nil
}
