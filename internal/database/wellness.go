package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"peloton-planner/internal/metrics"
)

// Wellness is one day of wellness data for an athlete
type Wellness struct {
	AthleteID int64           `json:"athlete_id"`
	Date      string          `json:"date"`
	WeightKg  *float64        `json:"weight_kg,omitempty"`
	RestingHR *int64          `json:"resting_hr,omitempty"`
	HRV       *float64        `json:"hrv,omitempty"`
	CTL       *float64        `json:"ctl,omitempty"`
	ATL       *float64        `json:"atl,omitempty"`
	RawJSON   json.RawMessage `json:"raw,omitempty"`
	SyncedAt  int64           `json:"synced_at"`
}

// UpsertWellness inserts or refreshes a wellness record
func (db *DB) UpsertWellness(w *Wellness) error {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpUpsertWellness))
	defer timer.ObserveDuration()

	w.SyncedAt = time.Now().Unix()
	raw := string(w.RawJSON)
	if raw == "" {
		raw = "{}"
	}

	_, err := db.conn.Exec(`
		INSERT INTO wellness (athlete_id, date, weight_kg, resting_hr, hrv, ctl, atl, raw_json, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(athlete_id, date) DO UPDATE SET
			weight_kg = excluded.weight_kg,
			resting_hr = excluded.resting_hr,
			hrv = excluded.hrv,
			ctl = excluded.ctl,
			atl = excluded.atl,
			raw_json = excluded.raw_json,
			synced_at = excluded.synced_at
	`, w.AthleteID, w.Date, w.WeightKg, w.RestingHR, w.HRV, w.CTL, w.ATL, raw, w.SyncedAt)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpUpsertWellness).Inc()
		return fmt.Errorf("failed to upsert wellness: %w", err)
	}
	return nil
}

// ListWellness returns wellness records for an athlete within an inclusive
// date range, newest first; empty bounds are open
func (db *DB) ListWellness(athleteID int64, from, to string) ([]*Wellness, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpListWellness))
	defer timer.ObserveDuration()

	query := `
		SELECT athlete_id, date, weight_kg, resting_hr, hrv, ctl, atl, raw_json, synced_at
		FROM wellness
		WHERE athlete_id = ?
	`
	args := []any{athleteID}
	if from != "" {
		query += " AND date >= ?"
		args = append(args, from)
	}
	if to != "" {
		query += " AND date <= ?"
		args = append(args, to)
	}
	query += " ORDER BY date DESC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpListWellness).Inc()
		return nil, fmt.Errorf("failed to list wellness: %w", err)
	}
	defer rows.Close()

	var records []*Wellness
	for rows.Next() {
		var w Wellness
		var raw string
		if err := rows.Scan(&w.AthleteID, &w.Date, &w.WeightKg, &w.RestingHR, &w.HRV, &w.CTL, &w.ATL, &raw, &w.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wellness: %w", err)
		}
		w.RawJSON = json.RawMessage(raw)
		records = append(records, &w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating wellness: %w", err)
	}

	return records, nil
}

// LatestWeight returns the most recent recorded body weight for an athlete, or nil
func (db *DB) LatestWeight(athleteID int64) (*float64, error) {
	var weight float64
	err := db.conn.QueryRow(`
		SELECT weight_kg FROM wellness
		WHERE athlete_id = ? AND weight_kg IS NOT NULL AND weight_kg > 0
		ORDER BY date DESC LIMIT 1
	`, athleteID).Scan(&weight)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest weight: %w", err)
	}
	return &weight, nil
}
