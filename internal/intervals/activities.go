package intervals

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"peloton-planner/internal/metrics"
)

// Activity is a completed activity summary. Raw holds the full payload.
type Activity struct {
	ID             string   `json:"id"`
	StartDateLocal *string  `json:"start_date_local"`
	Type           *string  `json:"type"`
	Name           *string  `json:"name"`
	Distance       *float64 `json:"distance"`
	MovingTime     *int64   `json:"moving_time"`
	TrainingLoad   *float64 `json:"icu_training_load"`
	AverageWatts   *float64 `json:"icu_average_watts"`

	Raw json.RawMessage `json:"-"`
}

// Wellness is one day of wellness data. ID is the date (YYYY-MM-DD).
type Wellness struct {
	ID        string   `json:"id"`
	Weight    *float64 `json:"weight"`
	RestingHR *int64   `json:"restingHR"`
	HRV       *float64 `json:"hrv"`
	CTL       *float64 `json:"ctl"`
	ATL       *float64 `json:"atl"`

	Raw json.RawMessage `json:"-"`
}

// ListActivities returns the key owner's activities between oldest and newest
func (c *Client) ListActivities(ctx context.Context, apiKey, oldest, newest string) ([]Activity, error) {
	path := fmt.Sprintf("/athlete/%s/activities?%s", SelfAthlete, dateRange(oldest, newest))

	respBody, err := c.doRequest(ctx, metrics.OpListActivities, http.MethodGet, path, apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal activities: %w", err)
	}

	activities := make([]Activity, 0, len(raw))
	for _, item := range raw {
		var a Activity
		if err := json.Unmarshal(item, &a); err != nil {
			return nil, fmt.Errorf("failed to unmarshal activity: %w", err)
		}
		if a.ID == "" {
			continue
		}
		a.Raw = item
		activities = append(activities, a)
	}

	return activities, nil
}

// ListWellness returns the key owner's wellness records between oldest and newest
func (c *Client) ListWellness(ctx context.Context, apiKey, oldest, newest string) ([]Wellness, error) {
	path := fmt.Sprintf("/athlete/%s/wellness?%s", SelfAthlete, dateRange(oldest, newest))

	respBody, err := c.doRequest(ctx, metrics.OpListWellness, http.MethodGet, path, apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list wellness: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wellness: %w", err)
	}

	records := make([]Wellness, 0, len(raw))
	for _, item := range raw {
		var w Wellness
		if err := json.Unmarshal(item, &w); err != nil {
			return nil, fmt.Errorf("failed to unmarshal wellness record: %w", err)
		}
		if w.ID == "" {
			continue
		}
		w.Raw = item
		records = append(records, w)
	}

	return records, nil
}
