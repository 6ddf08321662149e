package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Unbanked0/btcmap-api/internal/domain"
)

// DefaultOverpassURL is the public Overpass API interpreter.
const DefaultOverpassURL = "https://overpass-api.de/api/interpreter"

// DefaultOverpassQuery selects every element tagged as accepting bitcoin,
// with a representative center for ways and relations.
const DefaultOverpassQuery = `[out:json][timeout:300];nwr["currency:XBT"="yes"];out center meta;`

// OverpassClient fetches the full upstream dataset of bitcoin-accepting
// elements.
type OverpassClient struct {
	httpClient *http.Client
	url        string
	query      string
}

// NewOverpassClient creates a client for the given interpreter endpoint.
// Empty url or query fall back to the defaults; the timeout bounds the
// whole fetch.
func NewOverpassClient(endpoint, query string, timeout time.Duration) *OverpassClient {
	if endpoint == "" {
		endpoint = DefaultOverpassURL
	}
	if query == "" {
		query = DefaultOverpassQuery
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &OverpassClient{
		httpClient: &http.Client{Timeout: timeout},
		url:        endpoint,
		query:      query,
	}
}

// Fetch runs the Overpass query and returns the raw element payloads.
func (c *OverpassClient) Fetch(ctx context.Context) ([]domain.OsmJSON, error) {
	form := url.Values{"data": {c.query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch overpass data: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("overpass returned status %d", res.StatusCode)
	}

	var body struct {
		Elements []domain.OsmJSON `json:"elements"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode overpass response: %w", err)
	}
	return body.Elements, nil
}
