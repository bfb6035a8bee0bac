package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"peloton-planner/internal/metrics"
)

// Race represents a planned race; StageCount > 1 means multi-stage
type Race struct {
	ID                   int64    `json:"id"`
	TeamID               *int64   `json:"team_id,omitempty"`
	Name                 string   `json:"name"`
	StartDate            string   `json:"start_date"`
	Category             string   `json:"category"`
	Location             *string  `json:"location,omitempty"`
	DistanceKm           float64  `json:"distance_km"`
	ElevationM           float64  `json:"elevation_m"`
	AvgSpeedKmh          float64  `json:"avg_speed_kmh"`
	PredictedDurationMin *float64 `json:"predicted_duration_min,omitempty"`
	PredictedKJ          *float64 `json:"predicted_kj,omitempty"`
	StageCount           int      `json:"stage_count"`
	Notes                *string  `json:"notes,omitempty"`
	CreatedAt            int64    `json:"created_at"`
	UpdatedAt            int64    `json:"updated_at"`
}

// RaceFilter narrows ListRaces
type RaceFilter struct {
	TeamID *int64
	// From and To are inclusive YYYY-MM-DD bounds on the start date
	From string
	To   string
}

const raceColumns = `
	id, team_id, name, start_date, category, location,
	distance_km, elevation_m, avg_speed_kmh,
	predicted_duration_min, predicted_kj, stage_count, notes,
	created_at, updated_at
`

func scanRace(row interface{ Scan(...any) error }, r *Race) error {
	return row.Scan(
		&r.ID, &r.TeamID, &r.Name, &r.StartDate, &r.Category, &r.Location,
		&r.DistanceKm, &r.ElevationM, &r.AvgSpeedKmh,
		&r.PredictedDurationMin, &r.PredictedKJ, &r.StageCount, &r.Notes,
		&r.CreatedAt, &r.UpdatedAt,
	)
}

func (r *Race) normalize() {
	if r.Category == "" {
		r.Category = "C"
	}
	if r.StageCount < 1 {
		r.StageCount = 1
	}
}

// CreateRace inserts a new race and sets its ID
func (db *DB) CreateRace(r *Race) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpCreateRace))
	defer timer.ObserveDuration()

	r.normalize()
	now := time.Now().Unix()
	r.CreatedAt = now
	r.UpdatedAt = now

	result, err := db.conn.Exec(`
		INSERT INTO races (
			team_id, name, start_date, category, location,
			distance_km, elevation_m, avg_speed_kmh,
			predicted_duration_min, predicted_kj, stage_count, notes,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.TeamID, r.Name, r.StartDate, r.Category, r.Location,
		r.DistanceKm, r.ElevationM, r.AvgSpeedKmh,
		r.PredictedDurationMin, r.PredictedKJ, r.StageCount, r.Notes,
		r.CreatedAt, r.UpdatedAt)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpCreateRace).Inc()
		return fmt.Errorf("failed to create race: %w", err)
	}

	r.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get race id: %w", err)
	}
	return nil
}

// GetRace retrieves a race by ID
func (db *DB) GetRace(raceID int64) (*Race, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpGetRace))
	defer timer.ObserveDuration()

	var r Race
	err := scanRace(db.conn.QueryRow(`SELECT `+raceColumns+` FROM races WHERE id = ?`, raceID), &r)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpGetRace).Inc()
		return nil, fmt.Errorf("failed to get race: %w", err)
	}
	return &r, nil
}

// ListRaces returns races ordered by start date
func (db *DB) ListRaces(filter RaceFilter, offset, limit int) ([]*Race, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpListRaces))
	defer timer.ObserveDuration()

	query := `SELECT ` + raceColumns + ` FROM races WHERE 1 = 1`
	var args []any
	if filter.TeamID != nil {
		query += " AND team_id = ?"
		args = append(args, *filter.TeamID)
	}
	if filter.From != "" {
		query += " AND start_date >= ?"
		args = append(args, filter.From)
	}
	if filter.To != "" {
		query += " AND start_date <= ?"
		args = append(args, filter.To)
	}
	query += " ORDER BY start_date, id"
	query += limitClause(offset, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpListRaces).Inc()
		return nil, fmt.Errorf("failed to list races: %w", err)
	}
	defer rows.Close()

	var races []*Race
	for rows.Next() {
		var r Race
		if err := scanRace(rows, &r); err != nil {
			return nil, fmt.Errorf("failed to scan race: %w", err)
		}
		races = append(races, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating races: %w", err)
	}

	return races, nil
}

// UpdateRace updates every editable field of a race
func (db *DB) UpdateRace(r *Race) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpUpdateRace))
	defer timer.ObserveDuration()

	r.normalize()
	r.UpdatedAt = time.Now().Unix()

	result, err := db.conn.Exec(`
		UPDATE races
		SET team_id = ?, name = ?, start_date = ?, category = ?, location = ?,
		    distance_km = ?, elevation_m = ?, avg_speed_kmh = ?,
		    predicted_duration_min = ?, predicted_kj = ?, stage_count = ?, notes = ?,
		    updated_at = ?
		WHERE id = ?
	`, r.TeamID, r.Name, r.StartDate, r.Category, r.Location,
		r.DistanceKm, r.ElevationM, r.AvgSpeedKmh,
		r.PredictedDurationMin, r.PredictedKJ, r.StageCount, r.Notes,
		r.UpdatedAt, r.ID)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpUpdateRace).Inc()
		return fmt.Errorf("failed to update race: %w", err)
	}

	return checkAffected(result, "race")
}

// DeleteRace deletes a race with its stages, enrollments and push history
func (db *DB) DeleteRace(raceID int64) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpDeleteRace))
	defer timer.ObserveDuration()

	result, err := db.conn.Exec(`DELETE FROM races WHERE id = ?`, raceID)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpDeleteRace).Inc()
		return fmt.Errorf("failed to delete race: %w", err)
	}

	return checkAffected(result, "race")
}
