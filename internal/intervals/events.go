package intervals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"peloton-planner/internal/metrics"
)

// Event category tags for planned races
const (
	CategoryRaceA = "RACE_A"
	CategoryRaceB = "RACE_B"
	CategoryRaceC = "RACE_C"
)

// Event is a calendar event as returned by the events endpoints
type Event struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	StartDateLocal string   `json:"start_date_local"`
	EndDateLocal   string   `json:"end_date_local,omitempty"`
	Type           string   `json:"type,omitempty"`
	Description    string   `json:"description,omitempty"`
	Distance       *float64 `json:"distance,omitempty"`
	MovingTime     *int64   `json:"moving_time,omitempty"`
}

// EventRequest is the body of a create-event call
type EventRequest struct {
	Category       string  `json:"category"`
	StartDateLocal string  `json:"start_date_local"`
	EndDateLocal   string  `json:"end_date_local"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Type           string  `json:"type"`
	Distance       float64 `json:"distance"`
	MovingTime     int64   `json:"moving_time"`
}

// ListEvents returns the calendar events between oldest and newest (inclusive, YYYY-MM-DD)
func (c *Client) ListEvents(ctx context.Context, apiKey, athleteRef, oldest, newest string) ([]Event, error) {
	path := fmt.Sprintf("/athlete/%s/events?%s", url.PathEscape(athleteRef), dateRange(oldest, newest))

	respBody, err := c.doRequest(ctx, metrics.OpListEvents, http.MethodGet, path, apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	var events []Event
	if err := json.Unmarshal(respBody, &events); err != nil {
		return nil, fmt.Errorf("failed to unmarshal events: %w", err)
	}

	return events, nil
}

// DeleteEvent removes a calendar event
func (c *Client) DeleteEvent(ctx context.Context, apiKey, athleteRef string, eventID int64) error {
	path := fmt.Sprintf("/athlete/%s/events/%d", url.PathEscape(athleteRef), eventID)

	if _, err := c.doRequest(ctx, metrics.OpDeleteEvent, http.MethodDelete, path, apiKey, nil); err != nil {
		return fmt.Errorf("failed to delete event %d: %w", eventID, err)
	}

	return nil
}

// CreateEvent creates a calendar event and returns it as stored remotely
func (c *Client) CreateEvent(ctx context.Context, apiKey, athleteRef string, req *EventRequest) (*Event, error) {
	path := fmt.Sprintf("/athlete/%s/events", url.PathEscape(athleteRef))

	respBody, err := c.doRequest(ctx, metrics.OpCreateEvent, http.MethodPost, path, apiKey, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create event %q: %w", req.Name, err)
	}

	var event Event
	if err := json.Unmarshal(respBody, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal created event: %w", err)
	}

	return &event, nil
}
