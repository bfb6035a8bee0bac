package database

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"peloton-planner/internal/metrics"
)

// Enrollment links an athlete to a race with athlete-specific targets
type Enrollment struct {
	ID                int64    `json:"id"`
	RaceID            int64    `json:"race_id"`
	AthleteID         int64    `json:"athlete_id"`
	ObjectiveCategory *string  `json:"objective_category,omitempty"`
	KJPerHourPerKg    *float64 `json:"kj_per_hour_per_kg,omitempty"`
	CreatedAt         int64    `json:"created_at"`
}

// UpsertEnrollment enrolls an athlete in a race or updates the existing enrollment
func (db *DB) UpsertEnrollment(e *Enrollment) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpUpsertEnrollment))
	defer timer.ObserveDuration()

	e.CreatedAt = time.Now().Unix()
	err := db.conn.QueryRow(`
		INSERT INTO race_enrollments (race_id, athlete_id, objective_category, kj_per_hour_per_kg, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(race_id, athlete_id) DO UPDATE SET
			objective_category = excluded.objective_category,
			kj_per_hour_per_kg = excluded.kj_per_hour_per_kg
		RETURNING id, created_at
	`, e.RaceID, e.AthleteID, e.ObjectiveCategory, e.KJPerHourPerKg, e.CreatedAt).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpUpsertEnrollment).Inc()
		return fmt.Errorf("failed to upsert enrollment: %w", err)
	}
	return nil
}

// ListEnrollments returns the enrollments of a race ordered by enrollment time
func (db *DB) ListEnrollments(raceID int64) ([]*Enrollment, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpListEnrollments))
	defer timer.ObserveDuration()

	rows, err := db.conn.Query(`
		SELECT id, race_id, athlete_id, objective_category, kj_per_hour_per_kg, created_at
		FROM race_enrollments
		WHERE race_id = ?
		ORDER BY id
	`, raceID)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpListEnrollments).Inc()
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []*Enrollment
	for rows.Next() {
		var e Enrollment
		if err := rows.Scan(&e.ID, &e.RaceID, &e.AthleteID, &e.ObjectiveCategory, &e.KJPerHourPerKg, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		enrollments = append(enrollments, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enrollments: %w", err)
	}

	return enrollments, nil
}

// DeleteEnrollment removes an athlete from a race
func (db *DB) DeleteEnrollment(raceID, athleteID int64) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpDeleteEnrollment))
	defer timer.ObserveDuration()

	result, err := db.conn.Exec(`
		DELETE FROM race_enrollments WHERE race_id = ? AND athlete_id = ?
	`, raceID, athleteID)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpDeleteEnrollment).Inc()
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}

	return checkAffected(result, "enrollment")
}
