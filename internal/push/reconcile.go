package push

import (
	"context"
	"log/slog"

	"peloton-planner/internal/intervals"
	"peloton-planner/internal/metrics"
)

// Reconciler removes earlier copies of an event before it is recreated.
// It is best effort: lookup and delete failures are logged and counted,
// never returned.
type Reconciler struct {
	gateway Gateway
	logger  *slog.Logger
}

// NewReconciler creates a reconciler over the given gateway
func NewReconciler(gateway Gateway, logger *slog.Logger) *Reconciler {
	return &Reconciler{gateway: gateway, logger: logger}
}

// Reconcile deletes every event named exactly name on date and returns the
// number of events deleted
func (r *Reconciler) Reconcile(ctx context.Context, apiKey, name, date string) int {
	events, err := r.gateway.ListEvents(ctx, apiKey, intervals.SelfAthlete, date, date)
	if err != nil {
		metrics.ReconcileErrorsTotal.WithLabelValues(metrics.ReconcileStepList).Inc()
		r.logger.Warn("failed to list existing events", "name", name, "date", date, "error", err)
		return 0
	}

	deleted := 0
	for _, event := range events {
		if event.Name != name {
			continue
		}

		if err := r.gateway.DeleteEvent(ctx, apiKey, intervals.SelfAthlete, event.ID); err != nil {
			metrics.ReconcileErrorsTotal.WithLabelValues(metrics.ReconcileStepDelete).Inc()
			r.logger.Warn("failed to delete duplicate event", "event_id", event.ID, "name", name, "error", err)
			continue
		}

		deleted++
		metrics.ReconcileDeletedTotal.Inc()
		r.logger.Info("deleted duplicate event", "event_id", event.ID, "name", name, "date", date)
	}

	return deleted
}
