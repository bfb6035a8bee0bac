package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"peloton-planner/internal/estimate"
	"peloton-planner/internal/intervals"
	"peloton-planner/internal/metrics"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05"

	// Planned races start at 10:00 local time
	startTimeOfDay = "T10:00:00"

	activityType = "Ride"
)

var (
	ErrRaceNotFound       = errors.New("race not found")
	ErrNoEnrollments      = errors.New("no athletes enrolled in race")
	ErrNoEligibleAthletes = errors.New("no enrolled athlete has an Intervals.icu API key")
)

// segment is one calendar event to push: a whole race or one stage
type segment struct {
	Name string
	Date string
	estimate.Segment
}

type eligibleAthlete struct {
	athlete    *Athlete
	enrollment Enrollment
}

// Pusher fans a race out to the calendars of its enrolled athletes
type Pusher struct {
	repo       Repository
	gateway    Gateway
	reconciler *Reconciler
	recorder   Recorder
	logger     *slog.Logger
	group      singleflight.Group
	now        func() time.Time
}

// Option configures a Pusher
type Option func(*Pusher)

// WithRecorder persists every finished report
func WithRecorder(r Recorder) Option {
	return func(p *Pusher) {
		p.recorder = r
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(p *Pusher) {
		p.now = now
	}
}

// NewPusher creates a Pusher
func NewPusher(repo Repository, gateway Gateway, logger *slog.Logger, opts ...Option) *Pusher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pusher{
		repo:       repo,
		gateway:    gateway,
		reconciler: NewReconciler(gateway, logger),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PushRace creates or replaces the race's events in every eligible athlete's
// calendar. Concurrent calls for the same race share one run.
func (p *Pusher) PushRace(ctx context.Context, raceID int64) (*Report, error) {
	v, err, shared := p.group.Do(strconv.FormatInt(raceID, 10), func() (any, error) {
		return p.pushRace(ctx, raceID)
	})
	if shared {
		p.logger.Info("joined in-flight push", "race_id", raceID)
	}
	if err != nil {
		return nil, err
	}
	return v.(*Report), nil
}

func (p *Pusher) pushRace(ctx context.Context, raceID int64) (*Report, error) {
	timer := prometheus.NewTimer(metrics.PushRunDuration)
	defer timer.ObserveDuration()

	report, err := p.run(ctx, raceID)
	if err != nil {
		result := metrics.ResultError
		if errors.Is(err, ErrRaceNotFound) || errors.Is(err, ErrNoEnrollments) || errors.Is(err, ErrNoEligibleAthletes) {
			result = metrics.ResultNotFound
		}
		metrics.PushRunsTotal.WithLabelValues(result).Inc()
		p.logger.Warn("push aborted", "race_id", raceID, "error", err)
		return nil, err
	}

	metrics.PushRunsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	p.logger.Info("push completed",
		"run_id", report.RunID,
		"race_id", raceID,
		"athletes_processed", report.AthletesProcessed,
		"athletes_pushed", report.AthletesPushed,
		"events_created", report.EventsCreated,
		"failures", len(report.Failures),
	)

	if p.recorder != nil {
		if err := p.recorder.SaveReport(report); err != nil {
			p.logger.Error("failed to record push run", "run_id", report.RunID, "error", err)
		}
	}

	return report, nil
}

func (p *Pusher) run(ctx context.Context, raceID int64) (*Report, error) {
	race, err := p.repo.GetRace(raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load race: %w", err)
	}
	if race == nil {
		return nil, fmt.Errorf("%w: %d", ErrRaceNotFound, raceID)
	}

	enrollments, err := p.repo.GetEnrollments(raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollments: %w", err)
	}
	if len(enrollments) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoEnrollments, race.Name)
	}

	report := &Report{
		RunID:     uuid.NewString(),
		RaceID:    race.ID,
		RaceName:  race.Name,
		Success:   true,
		StartedAt: p.now(),
		Outcomes:  []AthleteOutcome{},
		Failures:  []Failure{},
	}

	var eligible []eligibleAthlete
	for _, enrollment := range enrollments {
		athlete, err := p.repo.GetAthlete(enrollment.AthleteID)
		if err != nil {
			return nil, fmt.Errorf("failed to load athlete %d: %w", enrollment.AthleteID, err)
		}
		if athlete == nil {
			p.logger.Warn("enrolled athlete not found", "race_id", raceID, "athlete_id", enrollment.AthleteID)
			continue
		}
		if !athlete.HasCredential() {
			metrics.PushAthleteOutcomesTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
			report.record(AthleteOutcome{
				AthleteID: athlete.ID,
				Name:      athlete.Name,
				State:     StateSkippedNoCredential,
			})
			continue
		}
		eligible = append(eligible, eligibleAthlete{athlete: athlete, enrollment: enrollment})
	}
	if len(eligible) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoEligibleAthletes, race.Name)
	}

	segments, err := p.segments(race)
	if err != nil {
		return nil, err
	}
	report.EventsPerAthlete = len(segments)

	for _, e := range eligible {
		report.AthletesProcessed++
		outcome, deleted := p.pushAthlete(ctx, race, e, segments)
		report.DuplicatesRemoved += deleted
		report.record(outcome)
	}

	report.FinishedAt = p.now()
	return report, nil
}

// segments lists the events to push in stage order
func (p *Pusher) segments(race *Race) ([]segment, error) {
	if race.MultiStage() {
		stages, err := p.repo.GetStages(race.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load stages: %w", err)
		}

		if len(stages) > 0 {
			segments := make([]segment, 0, len(stages))
			for _, stage := range stages {
				segments = append(segments, segment{
					Name: fmt.Sprintf("%s - T%d", race.Name, stage.Number),
					Date: stageDate(race, stage),
					Segment: estimate.Segment{
						DistanceKm: stage.DistanceKm,
						ElevationM: stage.ElevationM,
						SpeedKmh:   stage.AvgSpeedKmh,
					},
				})
			}
			return segments, nil
		}

		p.logger.Warn("multi-stage race has no stages, pushing as single event", "race_id", race.ID)
	}

	return []segment{{
		Name: race.Name,
		Date: race.StartDate,
		Segment: estimate.Segment{
			DistanceKm:          race.DistanceKm,
			ElevationM:          race.ElevationM,
			SpeedKmh:            race.AvgSpeedKmh,
			ExplicitDurationMin: race.PredictedDurationMin,
		},
	}}, nil
}

// stageDate falls back to the race start plus one day per earlier stage
func stageDate(race *Race, stage Stage) string {
	if stage.Date != "" {
		return stage.Date
	}
	start, err := time.Parse(dateLayout, race.StartDate)
	if err != nil {
		return race.StartDate
	}
	return start.AddDate(0, 0, stage.Number-1).Format(dateLayout)
}

func (p *Pusher) pushAthlete(ctx context.Context, race *Race, e eligibleAthlete, segments []segment) (AthleteOutcome, int) {
	athlete := e.athlete
	outcome := AthleteOutcome{
		AthleteID: athlete.ID,
		Name:      athlete.Name,
		State:     StateProcessing,
	}
	logger := p.logger.With("race_id", race.ID, "athlete_id", athlete.ID)

	tag := CategoryTag(resolveCategory(e.enrollment, race))
	deleted := 0

	for _, seg := range segments {
		est := estimate.Compute(seg.Segment, athlete.WeightKg, e.enrollment.EnergyRate)

		req, err := buildEventRequest(seg, est, tag)
		if err != nil {
			return p.fail(logger, outcome, err), deleted
		}

		deleted += p.reconciler.Reconcile(ctx, athlete.APIKey, seg.Name, seg.Date)

		event, err := p.gateway.CreateEvent(ctx, athlete.APIKey, intervals.SelfAthlete, req)
		if err != nil {
			return p.fail(logger, outcome, err), deleted
		}

		metrics.PushEventsCreatedTotal.Inc()
		outcome.EventIDs = append(outcome.EventIDs, event.ID)
		logger.Debug("event created", "event_id", event.ID, "name", seg.Name, "date", seg.Date)
	}

	outcome.State = StatePushed
	metrics.PushAthleteOutcomesTotal.WithLabelValues(metrics.OutcomePushed).Inc()
	return outcome, deleted
}

func (p *Pusher) fail(logger *slog.Logger, outcome AthleteOutcome, err error) AthleteOutcome {
	outcome.State = StateFailed
	outcome.Error = err.Error()
	metrics.PushAthleteOutcomesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
	logger.Error("failed to push athlete", "events_created", len(outcome.EventIDs), "error", err)
	return outcome
}

func buildEventRequest(seg segment, est estimate.Estimate, tag string) (*intervals.EventRequest, error) {
	startLocal := seg.Date + startTimeOfDay
	start, err := time.Parse(timestampLayout, startLocal)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q for %s: %w", seg.Date, seg.Name, err)
	}
	end := start.Add(time.Duration(est.DurationSeconds) * time.Second)

	return &intervals.EventRequest{
		Category:       tag,
		StartDateLocal: startLocal,
		EndDateLocal:   end.Format(timestampLayout),
		Name:           seg.Name,
		Description:    describe(seg, est),
		Type:           activityType,
		Distance:       seg.DistanceKm * 1000,
		MovingTime:     est.DurationSeconds,
	}, nil
}
