// Package push publishes locally planned races to athletes' Intervals.icu
// calendars, replacing events left by earlier pushes.
package push

import (
	"context"
	"strings"

	"peloton-planner/internal/intervals"
)

// Race is a planned race as seen by the push workflow
type Race struct {
	ID                   int64
	Name                 string
	StartDate            string
	Category             string
	DistanceKm           float64
	ElevationM           float64
	AvgSpeedKmh          float64
	PredictedDurationMin float64
	PredictedKJ          float64
	StageCount           int
}

// MultiStage reports whether the race is pushed stage by stage
func (r *Race) MultiStage() bool {
	return r.StageCount > 1
}

// Stage is one timed segment of a multi-stage race
type Stage struct {
	RaceID      int64
	Number      int
	Date        string
	DistanceKm  float64
	ElevationM  float64
	AvgSpeedKmh float64
}

// Enrollment links an athlete to a race. An empty ObjectiveCategory means
// the race category applies.
type Enrollment struct {
	RaceID            int64
	AthleteID         int64
	ObjectiveCategory string
	EnergyRate        float64
}

// Athlete carries what the push needs about a rider
type Athlete struct {
	ID       int64
	Name     string
	WeightKg float64
	APIKey   string
}

// HasCredential reports whether the athlete can receive calendar events
func (a *Athlete) HasCredential() bool {
	return strings.TrimSpace(a.APIKey) != ""
}

// Repository reads races, stages, enrollments and athletes.
// Getters return nil, nil when the record does not exist.
type Repository interface {
	GetRace(id int64) (*Race, error)
	GetStages(raceID int64) ([]Stage, error)
	GetEnrollments(raceID int64) ([]Enrollment, error)
	GetAthlete(id int64) (*Athlete, error)
}

// Gateway is the subset of the Intervals.icu API the push uses
type Gateway interface {
	ListEvents(ctx context.Context, apiKey, athleteRef, oldest, newest string) ([]intervals.Event, error)
	DeleteEvent(ctx context.Context, apiKey, athleteRef string, eventID int64) error
	CreateEvent(ctx context.Context, apiKey, athleteRef string, req *intervals.EventRequest) (*intervals.Event, error)
}

// Recorder persists finished push reports
type Recorder interface {
	SaveReport(report *Report) error
}
