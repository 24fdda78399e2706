package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// HTTPGateway talks to a notification relay service over HTTP. The relay
// fronts the per-device notification APIs; this process only sees its
// JSON surface.
type HTTPGateway struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPGateway creates a gateway for the relay at baseURL, authenticating
// with the given bearer token.
func NewHTTPGateway(baseURL, token string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// CancelAll removes every scheduled alert belonging to the reminder.
func (g *HTTPGateway) CancelAll(ctx context.Context, reminderID uuid.UUID) error {
	url := fmt.Sprintf("%s/v1/alerts/reminders/%s", g.baseURL, reminderID)
	resp, err := g.do(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Cancelling a reminder with no alerts is a no-op, not an error.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("alert relay returned status %d", resp.StatusCode)
	}
	return nil
}

// ScheduleAt registers one alert with the relay and returns its ID.
func (g *HTTPGateway) ScheduleAt(ctx context.Context, req ScheduleRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal alert request: %w", err)
	}

	resp, err := g.do(ctx, http.MethodPost, g.baseURL+"/v1/alerts", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return "", ErrAuthorizationDenied
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("alert relay returned status %d", resp.StatusCode)
	}

	var result struct {
		ID string `json:"id"`
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read alert relay response: %w", err)
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse alert relay response: %w", err)
	}
	return result.ID, nil
}

// AuthorizationState reports the relay's current permission state.
func (g *HTTPGateway) AuthorizationState(ctx context.Context) (AuthorizationState, error) {
	resp, err := g.do(ctx, http.MethodGet, g.baseURL+"/v1/alerts/authorization", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("alert relay returned status %d", resp.StatusCode)
	}

	var result struct {
		State AuthorizationState `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse authorization response: %w", err)
	}
	return result.State, nil
}

// RequestAuthorization asks the relay to prompt for permission.
func (g *HTTPGateway) RequestAuthorization(ctx context.Context) (bool, error) {
	resp, err := g.do(ctx, http.MethodPost, g.baseURL+"/v1/alerts/authorization", nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("alert relay returned status %d", resp.StatusCode)
	}

	var result struct {
		Granted bool `json:"granted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to parse authorization response: %w", err)
	}
	return result.Granted, nil
}

func (g *HTTPGateway) do(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alert relay request failed: %w", err)
	}
	return resp, nil
}

var _ Gateway = (*HTTPGateway)(nil)
