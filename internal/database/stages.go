package database

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"peloton-planner/internal/metrics"
)

// Stage represents one stage of a multi-stage race
type Stage struct {
	ID          int64   `json:"id"`
	RaceID      int64   `json:"race_id"`
	StageNumber int     `json:"stage_number"`
	Date        string  `json:"date"`
	DistanceKm  float64 `json:"distance_km"`
	ElevationM  float64 `json:"elevation_m"`
	AvgSpeedKmh float64 `json:"avg_speed_kmh"`
}

// ReplaceStages atomically replaces all stages of a race and keeps the
// race's stage_count in sync with the number of stages stored
func (db *DB) ReplaceStages(raceID int64, stages []*Stage) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpReplaceStages))
	defer timer.ObserveDuration()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM race_stages WHERE race_id = ?`, raceID); err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpReplaceStages).Inc()
		return fmt.Errorf("failed to clear stages: %w", err)
	}

	for _, s := range stages {
		s.RaceID = raceID
		result, err := tx.Exec(`
			INSERT INTO race_stages (race_id, stage_number, stage_date, distance_km, elevation_m, avg_speed_kmh)
			VALUES (?, ?, ?, ?, ?, ?)
		`, s.RaceID, s.StageNumber, s.Date, s.DistanceKm, s.ElevationM, s.AvgSpeedKmh)
		if err != nil {
			metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpReplaceStages).Inc()
			return fmt.Errorf("failed to insert stage %d: %w", s.StageNumber, err)
		}
		if s.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get stage id: %w", err)
		}
	}

	stageCount := len(stages)
	if stageCount < 1 {
		stageCount = 1
	}
	result, err := tx.Exec(`UPDATE races SET stage_count = ? WHERE id = ?`, stageCount, raceID)
	if err != nil {
		return fmt.Errorf("failed to update stage count: %w", err)
	}
	if err := checkAffected(result, "race"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit stages: %w", err)
	}
	return nil
}

// ListStages returns the stages of a race ordered by stage number
func (db *DB) ListStages(raceID int64) ([]*Stage, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpListStages))
	defer timer.ObserveDuration()

	rows, err := db.conn.Query(`
		SELECT id, race_id, stage_number, stage_date, distance_km, elevation_m, avg_speed_kmh
		FROM race_stages
		WHERE race_id = ?
		ORDER BY stage_number
	`, raceID)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpListStages).Inc()
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	defer rows.Close()

	var stages []*Stage
	for rows.Next() {
		var s Stage
		if err := rows.Scan(&s.ID, &s.RaceID, &s.StageNumber, &s.Date, &s.DistanceKm, &s.ElevationM, &s.AvgSpeedKmh); err != nil {
			return nil, fmt.Errorf("failed to scan stage: %w", err)
		}
		stages = append(stages, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stages: %w", err)
	}

	return stages, nil
}
