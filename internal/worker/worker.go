package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"peloton-planner/internal/config"
	"peloton-planner/internal/database"
	"peloton-planner/internal/intervals"
	"peloton-planner/internal/metrics"
)

const dateLayout = "2006-01-02"

var (
	ErrAthleteNotFound = errors.New("athlete not found")
	ErrNoCredential    = errors.New("athlete has no Intervals.icu API key")
)

// Source is the part of the Intervals.icu API the syncer reads from
type Source interface {
	ListActivities(ctx context.Context, apiKey, oldest, newest string) ([]intervals.Activity, error)
	ListWellness(ctx context.Context, apiKey, oldest, newest string) ([]intervals.Wellness, error)
}

// Result is what one athlete sync stored
type Result struct {
	AthleteID  int64    `json:"athlete_id"`
	Oldest     string   `json:"oldest"`
	Newest     string   `json:"newest"`
	Activities int      `json:"activities"`
	Wellness   int      `json:"wellness"`
	WeightKg   *float64 `json:"weight_kg,omitempty"`
}

// Syncer pulls activities and wellness for every athlete with an API key
type Syncer struct {
	db       *database.DB
	source   Source
	logger   *slog.Logger
	interval time.Duration
	lookback int
	now      func() time.Time
}

// NewSyncer creates a new activity and wellness syncer
func NewSyncer(db *database.DB, source Source, cfg *config.Config) *Syncer {
	interval := cfg.SyncInterval()
	if interval <= 0 {
		interval = time.Hour
	}
	return &Syncer{
		db:       db,
		source:   source,
		logger:   slog.Default(),
		interval: interval,
		lookback: cfg.SyncLookbackDays,
		now:      time.Now,
	}
}

// Start runs a sync pass immediately and then on every interval until ctx is done
func (s *Syncer) Start(ctx context.Context) error {
	s.logger.Info("Starting sync worker", "interval", s.interval, "lookback_days", s.lookback)
	metrics.WorkerActive.Set(1)
	defer metrics.WorkerActive.Set(0)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.SyncAll(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info("Stopping sync worker")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SyncAll syncs every athlete that has an API key. Failures are logged per
// athlete and do not stop the pass.
func (s *Syncer) SyncAll(ctx context.Context) int {
	athletes, err := s.db.ListAthletes(nil, true, 0, 0)
	if err != nil {
		s.logger.Error("Failed to list athletes for sync", "error", err)
		return 0
	}

	synced := 0
	for _, athlete := range athletes {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.syncAthlete(ctx, athlete); err != nil {
			s.logger.Error("Athlete sync failed", "athlete_id", athlete.ID, "error", err)
			continue
		}
		synced++
	}

	metrics.SyncPassesTotal.Inc()
	s.logger.Info("Sync pass completed", "athletes", len(athletes), "synced", synced)
	return synced
}

// SyncAthlete pulls the lookback window for one athlete
func (s *Syncer) SyncAthlete(ctx context.Context, athleteID int64) (*Result, error) {
	athlete, err := s.db.GetAthlete(athleteID)
	if err != nil {
		return nil, fmt.Errorf("failed to load athlete: %w", err)
	}
	if athlete == nil {
		return nil, fmt.Errorf("%w: %d", ErrAthleteNotFound, athleteID)
	}
	if !athlete.HasIntervalsKey() {
		return nil, fmt.Errorf("%w: %d", ErrNoCredential, athleteID)
	}

	return s.syncAthlete(ctx, athlete)
}

func (s *Syncer) syncAthlete(ctx context.Context, athlete *database.Athlete) (*Result, error) {
	today := s.now()
	result := &Result{
		AthleteID: athlete.ID,
		Oldest:    today.AddDate(0, 0, -s.lookback).Format(dateLayout),
		Newest:    today.Format(dateLayout),
	}
	apiKey := *athlete.IntervalsAPIKey

	var errs []error

	n, err := s.syncActivities(ctx, athlete.ID, apiKey, result.Oldest, result.Newest)
	result.Activities = n
	if err != nil {
		metrics.SyncErrorsTotal.WithLabelValues(metrics.SyncKindActivities).Inc()
		errs = append(errs, err)
	}

	n, err = s.syncWellness(ctx, athlete.ID, apiKey, result.Oldest, result.Newest)
	result.Wellness = n
	if err != nil {
		metrics.SyncErrorsTotal.WithLabelValues(metrics.SyncKindWellness).Inc()
		errs = append(errs, err)
	}

	weight, err := s.db.LatestWeight(athlete.ID)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to read latest weight: %w", err))
	} else if weight != nil {
		if athlete.WeightKg == nil || *athlete.WeightKg != *weight {
			if err := s.db.UpdateAthleteWeight(athlete.ID, *weight); err != nil {
				errs = append(errs, fmt.Errorf("failed to update weight: %w", err))
			} else {
				s.logger.Info("Updated athlete weight", "athlete_id", athlete.ID, "weight_kg", *weight)
			}
		}
		result.WeightKg = weight
	}

	s.logger.Info("Synced athlete",
		"athlete_id", athlete.ID,
		"oldest", result.Oldest,
		"newest", result.Newest,
		"activities", result.Activities,
		"wellness", result.Wellness)

	return result, errors.Join(errs...)
}

func (s *Syncer) syncActivities(ctx context.Context, athleteID int64, apiKey, oldest, newest string) (int, error) {
	activities, err := s.source.ListActivities(ctx, apiKey, oldest, newest)
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, a := range activities {
		err := s.db.UpsertActivity(&database.Activity{
			ID:             a.ID,
			AthleteID:      athleteID,
			StartDateLocal: a.StartDateLocal,
			ActivityType:   a.Type,
			Name:           a.Name,
			DistanceM:      a.Distance,
			MovingTimeS:    a.MovingTime,
			TrainingLoad:   a.TrainingLoad,
			AverageWatts:   a.AverageWatts,
			RawJSON:        a.Raw,
		})
		if err != nil {
			return stored, fmt.Errorf("failed to store activity %s: %w", a.ID, err)
		}
		stored++
	}

	metrics.SyncRecordsTotal.WithLabelValues(metrics.SyncKindActivities).Add(float64(stored))
	return stored, nil
}

func (s *Syncer) syncWellness(ctx context.Context, athleteID int64, apiKey, oldest, newest string) (int, error) {
	records, err := s.source.ListWellness(ctx, apiKey, oldest, newest)
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, w := range records {
		err := s.db.UpsertWellness(&database.Wellness{
			AthleteID: athleteID,
			Date:      w.ID,
			WeightKg:  w.Weight,
			RestingHR: w.RestingHR,
			HRV:       w.HRV,
			CTL:       w.CTL,
			ATL:       w.ATL,
			RawJSON:   w.Raw,
		})
		if err != nil {
			return stored, fmt.Errorf("failed to store wellness %s: %w", w.ID, err)
		}
		stored++
	}

	metrics.SyncRecordsTotal.WithLabelValues(metrics.SyncKindWellness).Add(float64(stored))
	return stored, nil
}
