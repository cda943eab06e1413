package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/ultracoach/internal/models"
	"github.com/claude/ultracoach/internal/storage"
)

// HTTPClient implements DataSource by calling the UltraCoach REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. apiKey is
// sent on write requests.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, params url.Values, payload any) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("httpclient: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("httpclient: %s: %w", path, storage.ErrNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, respBody)
	}

	return respBody, nil
}

func (c *HTTPClient) GetAthlete(ctx context.Context, athleteID string) (*models.Athlete, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/athletes/"+url.PathEscape(athleteID), nil, nil)
	if err != nil {
		return nil, err
	}

	var a models.Athlete
	if err := json.Unmarshal(body, &a); err != nil {
		return nil, fmt.Errorf("httpclient: decode athlete: %w", err)
	}
	return &a, nil
}

func (c *HTTPClient) QueryPlannedWorkouts(ctx context.Context, athleteID string, start, end time.Time) ([]models.PlannedWorkoutRow, error) {
	params := url.Values{}
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))

	body, err := c.do(ctx, http.MethodGet, "/api/v1/athletes/"+url.PathEscape(athleteID)+"/plans", params, nil)
	if err != nil {
		return nil, err
	}

	var plans []models.PlannedWorkoutRow
	if err := json.Unmarshal(body, &plans); err != nil {
		return nil, fmt.Errorf("httpclient: decode planned workouts: %w", err)
	}
	return plans, nil
}

func (c *HTTPClient) SavePlannedWorkout(ctx context.Context, p models.PlannedWorkoutRow) (*models.PlannedWorkoutRow, error) {
	payload := map[string]any{
		"plan_date": p.PlanDate.Format("2006-01-02"),
		"workout":   p.Workout,
	}

	body, err := c.do(ctx, http.MethodPost, "/api/v1/athletes/"+url.PathEscape(p.AthleteID)+"/plans", nil, payload)
	if err != nil {
		return nil, err
	}

	var saved models.PlannedWorkoutRow
	if err := json.Unmarshal(body, &saved); err != nil {
		return nil, fmt.Errorf("httpclient: decode planned workout: %w", err)
	}
	return &saved, nil
}
