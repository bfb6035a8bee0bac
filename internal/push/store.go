package push

import (
	"encoding/json"
	"fmt"

	"peloton-planner/internal/database"
	"peloton-planner/internal/estimate"
)

// Store adapts the database to the Repository and Recorder interfaces,
// applying defaults once at the boundary
type Store struct {
	db *database.DB
}

// NewStore wraps a database
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// GetRace loads a race
func (s *Store) GetRace(id int64) (*Race, error) {
	r, err := s.db.GetRace(id)
	if err != nil || r == nil {
		return nil, err
	}

	race := &Race{
		ID:          r.ID,
		Name:        r.Name,
		StartDate:   r.StartDate,
		Category:    r.Category,
		DistanceKm:  r.DistanceKm,
		ElevationM:  r.ElevationM,
		AvgSpeedKmh: r.AvgSpeedKmh,
		StageCount:  r.StageCount,
	}
	if r.PredictedDurationMin != nil {
		race.PredictedDurationMin = *r.PredictedDurationMin
	}
	if r.PredictedKJ != nil {
		race.PredictedKJ = *r.PredictedKJ
	}
	if race.Category == "" {
		race.Category = "C"
	}
	if race.StageCount < 1 {
		race.StageCount = 1
	}

	return race, nil
}

// GetStages loads a race's stages ordered by stage number
func (s *Store) GetStages(raceID int64) ([]Stage, error) {
	rows, err := s.db.ListStages(raceID)
	if err != nil {
		return nil, err
	}

	stages := make([]Stage, 0, len(rows))
	for _, r := range rows {
		stages = append(stages, Stage{
			RaceID:      r.RaceID,
			Number:      r.StageNumber,
			Date:        r.Date,
			DistanceKm:  r.DistanceKm,
			ElevationM:  r.ElevationM,
			AvgSpeedKmh: r.AvgSpeedKmh,
		})
	}

	return stages, nil
}

// GetEnrollments loads a race's enrollments
func (s *Store) GetEnrollments(raceID int64) ([]Enrollment, error) {
	rows, err := s.db.ListEnrollments(raceID)
	if err != nil {
		return nil, err
	}

	enrollments := make([]Enrollment, 0, len(rows))
	for _, r := range rows {
		e := Enrollment{
			RaceID:     r.RaceID,
			AthleteID:  r.AthleteID,
			EnergyRate: estimate.DefaultEnergyRate,
		}
		if r.ObjectiveCategory != nil {
			e.ObjectiveCategory = *r.ObjectiveCategory
		}
		if r.KJPerHourPerKg != nil && *r.KJPerHourPerKg > 0 {
			e.EnergyRate = *r.KJPerHourPerKg
		}
		enrollments = append(enrollments, e)
	}

	return enrollments, nil
}

// GetAthlete loads an athlete
func (s *Store) GetAthlete(id int64) (*Athlete, error) {
	a, err := s.db.GetAthlete(id)
	if err != nil || a == nil {
		return nil, err
	}

	athlete := &Athlete{
		ID:       a.ID,
		Name:     a.FullName(),
		WeightKg: estimate.DefaultWeightKg,
	}
	if a.WeightKg != nil && *a.WeightKg > 0 {
		athlete.WeightKg = *a.WeightKg
	}
	if a.IntervalsAPIKey != nil {
		athlete.APIKey = *a.IntervalsAPIKey
	}

	return athlete, nil
}

// SaveReport persists a finished push run
func (s *Store) SaveReport(report *Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	return s.db.InsertPushRun(&database.PushRun{
		ID:                report.RunID,
		RaceID:            report.RaceID,
		StartedAt:         report.StartedAt.Unix(),
		FinishedAt:        report.FinishedAt.Unix(),
		AthletesProcessed: report.AthletesProcessed,
		AthletesPushed:    report.AthletesPushed,
		EventsCreated:     report.EventsCreated,
		FailureCount:      len(report.Failures),
		Report:            data,
	})
}
