package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"peloton-planner/internal/metrics"
)

// Team represents a group of athletes
type Team struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Category  *string `json:"category,omitempty"`
	CreatedAt int64   `json:"created_at"`
	UpdatedAt int64   `json:"updated_at"`
}

// CreateTeam inserts a new team and sets its ID
func (db *DB) CreateTeam(t *Team) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpCreateTeam))
	defer timer.ObserveDuration()

	now := time.Now().Unix()
	t.CreatedAt = now
	t.UpdatedAt = now

	result, err := db.conn.Exec(`
		INSERT INTO teams (name, category, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, t.Name, t.Category, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpCreateTeam).Inc()
		return fmt.Errorf("failed to create team: %w", err)
	}

	t.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get team id: %w", err)
	}
	return nil
}

// GetTeam retrieves a team by ID
func (db *DB) GetTeam(teamID int64) (*Team, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpGetTeam))
	defer timer.ObserveDuration()

	var t Team
	err := db.conn.QueryRow(`
		SELECT id, name, category, created_at, updated_at
		FROM teams WHERE id = ?
	`, teamID).Scan(&t.ID, &t.Name, &t.Category, &t.CreatedAt, &t.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpGetTeam).Inc()
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return &t, nil
}

// ListTeams returns teams ordered by name
func (db *DB) ListTeams() ([]*Team, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpListTeams))
	defer timer.ObserveDuration()

	rows, err := db.conn.Query(`
		SELECT id, name, category, created_at, updated_at
		FROM teams ORDER BY name
	`)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpListTeams).Inc()
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []*Team
	for rows.Next() {
		var t Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Category, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teams: %w", err)
	}

	return teams, nil
}

// UpdateTeam updates a team's name and category
func (db *DB) UpdateTeam(t *Team) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpUpdateTeam))
	defer timer.ObserveDuration()

	t.UpdatedAt = time.Now().Unix()
	result, err := db.conn.Exec(`
		UPDATE teams SET name = ?, category = ?, updated_at = ?
		WHERE id = ?
	`, t.Name, t.Category, t.UpdatedAt, t.ID)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpUpdateTeam).Inc()
		return fmt.Errorf("failed to update team: %w", err)
	}

	return checkAffected(result, "team")
}

// DeleteTeam deletes a team; its athletes and races are kept without a team
func (db *DB) DeleteTeam(teamID int64) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpDeleteTeam))
	defer timer.ObserveDuration()

	result, err := db.conn.Exec(`DELETE FROM teams WHERE id = ?`, teamID)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpDeleteTeam).Inc()
		return fmt.Errorf("failed to delete team: %w", err)
	}

	return checkAffected(result, "team")
}
