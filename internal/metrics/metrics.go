package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label value constants to prevent typos
const (
	// Push results
	ResultSuccess  = "success"
	ResultNotFound = "not_found"
	ResultError    = "error"

	// Per-athlete push outcomes
	OutcomePushed  = "pushed"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped_no_credential"

	// Reconciliation steps
	ReconcileStepList   = "list"
	ReconcileStepDelete = "delete"

	// Sync kinds
	SyncKindActivities = "activities"
	SyncKindWellness   = "wellness"

	// Intervals.icu API operations
	OpListEvents     = "list_events"
	OpCreateEvent    = "create_event"
	OpDeleteEvent    = "delete_event"
	OpListActivities = "list_activities"
	OpListWellness   = "list_wellness"

	// Inventory kinds
	InventoryTeams           = "teams"
	InventoryAthletes        = "athletes"
	InventoryAthletesWithKey = "athletes_with_key"
	InventoryRaces           = "races"
	InventoryUpcomingRaces   = "upcoming_races"
	InventoryActivities      = "activities"
	InventoryWellnessRecords = "wellness_records"

	// Database operations
	DBOpCreateTeam       = "create_team"
	DBOpGetTeam          = "get_team"
	DBOpListTeams        = "list_teams"
	DBOpUpdateTeam       = "update_team"
	DBOpDeleteTeam       = "delete_team"
	DBOpCreateAthlete    = "create_athlete"
	DBOpGetAthlete       = "get_athlete"
	DBOpListAthletes     = "list_athletes"
	DBOpUpdateAthlete    = "update_athlete"
	DBOpDeleteAthlete    = "delete_athlete"
	DBOpCreateRace       = "create_race"
	DBOpGetRace          = "get_race"
	DBOpListRaces        = "list_races"
	DBOpUpdateRace       = "update_race"
	DBOpDeleteRace       = "delete_race"
	DBOpReplaceStages    = "replace_stages"
	DBOpListStages       = "list_stages"
	DBOpUpsertEnrollment = "upsert_enrollment"
	DBOpListEnrollments  = "list_enrollments"
	DBOpDeleteEnrollment = "delete_enrollment"
	DBOpUpsertActivity   = "upsert_activity"
	DBOpListActivities   = "list_activities"
	DBOpUpsertWellness   = "upsert_wellness"
	DBOpListWellness     = "list_wellness"
	DBOpInsertPushRun    = "insert_push_run"
	DBOpListPushRuns     = "list_push_runs"
	DBOpCountInventory   = "count_inventory"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint", "status_code"},
	)
)

// Intervals.icu API Metrics
var (
	IntervalsAPIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intervals_api_requests_total",
			Help: "Total number of Intervals.icu API requests",
		},
		[]string{"operation", "status_code"},
	)

	IntervalsAPIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intervals_api_request_duration_seconds",
			Help:    "Intervals.icu API request latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation", "status_code"},
	)
)

// Database Metrics
var (
	DBOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Database operation latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	DBOperationErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_operation_errors_total",
			Help: "Total number of database operation errors",
		},
		[]string{"operation"},
	)
)

// Push Metrics
var (
	PushRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "race_push_runs_total",
			Help: "Total number of race push runs by result",
		},
		[]string{"result"},
	)

	PushRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "race_push_run_duration_seconds",
			Help:    "Wall-clock duration of a race push run",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	PushAthleteOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "race_push_athlete_outcomes_total",
			Help: "Total number of per-athlete push outcomes",
		},
		[]string{"outcome"},
	)

	PushEventsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "race_push_events_created_total",
			Help: "Total number of calendar events created by race pushes",
		},
	)

	ReconcileDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "race_push_duplicates_deleted_total",
			Help: "Total number of same-named calendar events deleted before creation",
		},
	)

	ReconcileErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "race_push_reconcile_errors_total",
			Help: "Total number of swallowed reconciliation errors",
		},
		[]string{"step"},
	)
)

// Sync Metrics
var (
	SyncRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_total",
			Help: "Total number of records pulled from Intervals.icu",
		},
		[]string{"kind"},
	)

	SyncErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total number of failed athlete sync attempts",
		},
		[]string{"kind"},
	)

	SyncPassesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_passes_total",
			Help: "Total number of background sync passes",
		},
	)

	WorkerActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_active",
			Help: "Whether the sync worker is currently active (1) or not (0)",
		},
	)
)

// Inventory Metrics
var (
	InventoryTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inventory_total",
			Help: "Number of locally stored records by kind",
		},
		[]string{"kind"},
	)
)
