package database

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"peloton-planner/internal/metrics"
)

// CountInventory returns record counts keyed by metrics inventory kind
func (db *DB) CountInventory() (map[string]int, error) {
	timer := prometheus.NewTimer(metrics.DBOperationDuration.WithLabelValues(metrics.DBOpCountInventory))
	defer timer.ObserveDuration()

	today := time.Now().Format("2006-01-02")
	queries := []struct {
		kind  string
		query string
		args  []any
	}{
		{metrics.InventoryTeams, `SELECT COUNT(*) FROM teams`, nil},
		{metrics.InventoryAthletes, `SELECT COUNT(*) FROM athletes`, nil},
		{metrics.InventoryAthletesWithKey, `SELECT COUNT(*) FROM athletes WHERE intervals_api_key IS NOT NULL AND TRIM(intervals_api_key) != ''`, nil},
		{metrics.InventoryRaces, `SELECT COUNT(*) FROM races`, nil},
		{metrics.InventoryUpcomingRaces, `SELECT COUNT(*) FROM races WHERE start_date >= ?`, []any{today}},
		{metrics.InventoryActivities, `SELECT COUNT(*) FROM activities`, nil},
		{metrics.InventoryWellnessRecords, `SELECT COUNT(*) FROM wellness`, nil},
	}

	counts := make(map[string]int, len(queries))
	for _, q := range queries {
		var n int
		if err := db.conn.QueryRow(q.query, q.args...).Scan(&n); err != nil {
			metrics.DBOperationErrorsTotal.WithLabelValues(metrics.DBOpCountInventory).Inc()
			return nil, fmt.Errorf("failed to count %s: %w", q.kind, err)
		}
		counts[q.kind] = n
	}

	return counts, nil
}
