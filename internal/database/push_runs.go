package database

import (
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"peloton-planner/internal/metrics"
)

// PushRun is the persisted summary of one race-to-calendar push
type PushRun struct {
	ID                string          `json:"id"`
	RaceID            int64           `json:"race_id"`
	StartedAt         int64           `json:"started_at"`
	FinishedAt        int64           `json:"finished_at"`
	AthletesProcessed int             `json:"athletes_processed"`
	AthletesPushed    int             `json:"athletes_pushed"`
	EventsCreated     int             `json:"events_created"`
	FailureCount      int             `json:"failure_count"`
	Report            json.RawMessage `json:"report"`
}

// InsertPushRun records a push run
func (db *DB) InsertPushRun(run *PushRun) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpInsertPushRun))
	defer timer.ObserveDuration()

	report := string(run.Report)
	if report == "" {
		report = "{}"
	}

	_, err := db.conn.Exec(`
		INSERT INTO push_runs (
			id, race_id, started_at, finished_at,
			athletes_processed, athletes_pushed, events_created, failure_count,
			report_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.RaceID, run.StartedAt, run.FinishedAt,
		run.AthletesProcessed, run.AthletesPushed, run.EventsCreated, run.FailureCount,
		report)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpInsertPushRun).Inc()
		return fmt.Errorf("failed to insert push run: %w", err)
	}
	return nil
}

// ListPushRuns returns the push history of a race, newest first
func (db *DB) ListPushRuns(raceID int64, limit int) ([]*PushRun, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpListPushRuns))
	defer timer.ObserveDuration()

	query := `
		SELECT id, race_id, started_at, finished_at,
		       athletes_processed, athletes_pushed, events_created, failure_count,
		       report_json
		FROM push_runs
		WHERE race_id = ?
		ORDER BY started_at DESC, rowid DESC
	`
	query += limitClause(0, limit)

	rows, err := db.conn.Query(query, raceID)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpListPushRuns).Inc()
		return nil, fmt.Errorf("failed to list push runs: %w", err)
	}
	defer rows.Close()

	var runs []*PushRun
	for rows.Next() {
		var run PushRun
		var report string
		err := rows.Scan(
			&run.ID, &run.RaceID, &run.StartedAt, &run.FinishedAt,
			&run.AthletesProcessed, &run.AthletesPushed, &run.EventsCreated, &run.FailureCount,
			&report,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan push run: %w", err)
		}
		run.Report = json.RawMessage(report)
		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating push runs: %w", err)
	}

	return runs, nil
}
