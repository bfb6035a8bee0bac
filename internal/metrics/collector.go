package metrics

import (
	"context"
	"log/slog"
	"time"
)

// DB interface for inventory queries
type DB interface {
	CountInventory() (map[string]int, error)
}

// StartInventoryCollector starts a loop that periodically collects
// record counts from the database until ctx is cancelled
func StartInventoryCollector(ctx context.Context, db DB, interval time.Duration) {
	logger := slog.Default()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect once immediately
	collectInventory(db, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Inventory collector stopping")
			return
		case <-ticker.C:
			collectInventory(db, logger)
		}
	}
}

func collectInventory(db DB, logger *slog.Logger) {
	counts, err := db.CountInventory()
	if err != nil {
		logger.Error("Failed to count inventory", "error", err)
		return
	}

	for kind, n := range counts {
		InventoryTotal.WithLabelValues(kind).Set(float64(n))
	}
}
