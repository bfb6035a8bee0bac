package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"peloton-planner/internal/metrics"
)

// Athlete represents a rider of the team
type Athlete struct {
	ID              int64    `json:"id"`
	TeamID          *int64   `json:"team_id,omitempty"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	WeightKg        *float64 `json:"weight_kg,omitempty"`
	FTPWatts        *int64   `json:"ftp_watts,omitempty"`
	IntervalsAPIKey *string  `json:"-"`
	CreatedAt       int64    `json:"created_at"`
	UpdatedAt       int64    `json:"updated_at"`
}

// FullName returns "First Last"
func (a *Athlete) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// HasIntervalsKey reports whether the athlete has a non-empty Intervals.icu API key
func (a *Athlete) HasIntervalsKey() bool {
	return a.IntervalsAPIKey != nil && strings.TrimSpace(*a.IntervalsAPIKey) != ""
}

const athleteColumns = `
	id, team_id, first_name, last_name, weight_kg, ftp_watts,
	intervals_api_key, created_at, updated_at
`

func scanAthlete(row interface{ Scan(...any) error }, a *Athlete) error {
	return row.Scan(
		&a.ID, &a.TeamID, &a.FirstName, &a.LastName, &a.WeightKg, &a.FTPWatts,
		&a.IntervalsAPIKey, &a.CreatedAt, &a.UpdatedAt,
	)
}

// CreateAthlete inserts a new athlete and sets its ID
func (db *DB) CreateAthlete(a *Athlete) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpCreateAthlete))
	defer timer.ObserveDuration()

	now := time.Now().Unix()
	a.CreatedAt = now
	a.UpdatedAt = now

	result, err := db.conn.Exec(`
		INSERT INTO athletes (
			team_id, first_name, last_name, weight_kg, ftp_watts,
			intervals_api_key, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.TeamID, a.FirstName, a.LastName, a.WeightKg, a.FTPWatts,
		a.IntervalsAPIKey, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpCreateAthlete).Inc()
		return fmt.Errorf("failed to create athlete: %w", err)
	}

	a.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get athlete id: %w", err)
	}
	return nil
}

// GetAthlete retrieves an athlete by ID
func (db *DB) GetAthlete(athleteID int64) (*Athlete, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpGetAthlete))
	defer timer.ObserveDuration()

	var a Athlete
	err := scanAthlete(db.conn.QueryRow(`SELECT `+athleteColumns+` FROM athletes WHERE id = ?`, athleteID), &a)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpGetAthlete).Inc()
		return nil, fmt.Errorf("failed to get athlete: %w", err)
	}
	return &a, nil
}

// ListAthletes returns athletes with pagination, optionally filtered by team
// and by presence of an Intervals.icu key
func (db *DB) ListAthletes(teamID *int64, withKeyOnly bool, offset, limit int) ([]*Athlete, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpListAthletes))
	defer timer.ObserveDuration()

	query := `SELECT ` + athleteColumns + ` FROM athletes WHERE 1 = 1`
	var args []any
	if teamID != nil {
		query += " AND team_id = ?"
		args = append(args, *teamID)
	}
	if withKeyOnly {
		query += " AND intervals_api_key IS NOT NULL AND TRIM(intervals_api_key) != ''"
	}
	query += " ORDER BY last_name, first_name, id"
	query += limitClause(offset, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpListAthletes).Inc()
		return nil, fmt.Errorf("failed to list athletes: %w", err)
	}
	defer rows.Close()

	var athletes []*Athlete
	for rows.Next() {
		var a Athlete
		if err := scanAthlete(rows, &a); err != nil {
			return nil, fmt.Errorf("failed to scan athlete: %w", err)
		}
		athletes = append(athletes, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating athletes: %w", err)
	}

	return athletes, nil
}

// UpdateAthlete updates an athlete's profile, including its Intervals.icu key
func (db *DB) UpdateAthlete(a *Athlete) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpUpdateAthlete))
	defer timer.ObserveDuration()

	a.UpdatedAt = time.Now().Unix()
	result, err := db.conn.Exec(`
		UPDATE athletes
		SET team_id = ?, first_name = ?, last_name = ?, weight_kg = ?, ftp_watts = ?,
		    intervals_api_key = ?, updated_at = ?
		WHERE id = ?
	`, a.TeamID, a.FirstName, a.LastName, a.WeightKg, a.FTPWatts,
		a.IntervalsAPIKey, a.UpdatedAt, a.ID)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpUpdateAthlete).Inc()
		return fmt.Errorf("failed to update athlete: %w", err)
	}

	return checkAffected(result, "athlete")
}

// UpdateAthleteWeight sets an athlete's body weight
func (db *DB) UpdateAthleteWeight(athleteID int64, weightKg float64) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpUpdateAthlete))
	defer timer.ObserveDuration()

	result, err := db.conn.Exec(`
		UPDATE athletes SET weight_kg = ?, updated_at = ?
		WHERE id = ?
	`, weightKg, time.Now().Unix(), athleteID)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpUpdateAthlete).Inc()
		return fmt.Errorf("failed to update athlete weight: %w", err)
	}

	return checkAffected(result, "athlete")
}

// DeleteAthlete deletes an athlete along with its enrollments, activities and wellness
func (db *DB) DeleteAthlete(athleteID int64) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpDeleteAthlete))
	defer timer.ObserveDuration()

	result, err := db.conn.Exec(`DELETE FROM athletes WHERE id = ?`, athleteID)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpDeleteAthlete).Inc()
		return fmt.Errorf("failed to delete athlete: %w", err)
	}

	return checkAffected(result, "athlete")
}
