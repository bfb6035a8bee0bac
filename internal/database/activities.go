package database

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"peloton-planner/internal/metrics"
)

// Activity represents a completed activity pulled from Intervals.icu
type Activity struct {
	ID             string          `json:"id"`
	AthleteID      int64           `json:"athlete_id"`
	StartDateLocal *string         `json:"start_date_local,omitempty"`
	ActivityType   *string         `json:"type,omitempty"`
	Name           *string         `json:"name,omitempty"`
	DistanceM      *float64        `json:"distance_m,omitempty"`
	MovingTimeS    *int64          `json:"moving_time_s,omitempty"`
	TrainingLoad   *float64        `json:"training_load,omitempty"`
	AverageWatts   *float64        `json:"average_watts,omitempty"`
	RawJSON        json.RawMessage `json:"raw,omitempty"`
	SyncedAt       int64           `json:"synced_at"`
}

// UpsertActivity inserts or refreshes an activity
func (db *DB) UpsertActivity(a *Activity) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpUpsertActivity))
	defer timer.ObserveDuration()

	a.SyncedAt = time.Now().Unix()
	raw := string(a.RawJSON)
	if raw == "" {
		raw = "{}"
	}

	_, err := db.conn.Exec(`
		INSERT INTO activities (
			id, athlete_id, start_date_local, activity_type, name,
			distance_m, moving_time_s, training_load, average_watts,
			raw_json, synced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_date_local = excluded.start_date_local,
			activity_type = excluded.activity_type,
			name = excluded.name,
			distance_m = excluded.distance_m,
			moving_time_s = excluded.moving_time_s,
			training_load = excluded.training_load,
			average_watts = excluded.average_watts,
			raw_json = excluded.raw_json,
			synced_at = excluded.synced_at
	`, a.ID, a.AthleteID, a.StartDateLocal, a.ActivityType, a.Name,
		a.DistanceM, a.MovingTimeS, a.TrainingLoad, a.AverageWatts,
		raw, a.SyncedAt)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpUpsertActivity).Inc()
		return fmt.Errorf("failed to upsert activity: %w", err)
	}
	return nil
}

// ListActivitiesByAthlete returns activities for an athlete, newest first, with pagination
func (db *DB) ListActivitiesByAthlete(athleteID int64, offset, limit int) ([]*Activity, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpListActivities))
	defer timer.ObserveDuration()

	query := `
		SELECT id, athlete_id, start_date_local, activity_type, name,
		       distance_m, moving_time_s, training_load, average_watts,
		       raw_json, synced_at
		FROM activities
		WHERE athlete_id = ?
		ORDER BY start_date_local DESC
	`
	query += limitClause(offset, limit)

	rows, err := db.conn.Query(query, athleteID)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpListActivities).Inc()
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var activities []*Activity
	for rows.Next() {
		var a Activity
		var raw string
		err := rows.Scan(
			&a.ID, &a.AthleteID, &a.StartDateLocal, &a.ActivityType, &a.Name,
			&a.DistanceM, &a.MovingTimeS, &a.TrainingLoad, &a.AverageWatts,
			&raw, &a.SyncedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.RawJSON = json.RawMessage(raw)
		activities = append(activities, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}

	return activities, nil
}
