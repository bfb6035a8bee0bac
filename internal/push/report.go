package push

import "time"

// AthleteState is where an athlete ended up in a push
type AthleteState string

const (
	StateSkippedNoCredential AthleteState = "skipped-no-credential"
	StateProcessing          AthleteState = "processing"
	StatePushed              AthleteState = "pushed"
	StateFailed              AthleteState = "failed"
)

// AthleteOutcome is the per-athlete result of a push
type AthleteOutcome struct {
	AthleteID int64        `json:"athlete_id"`
	Name      string       `json:"name"`
	State     AthleteState `json:"state"`
	EventIDs  []int64      `json:"event_ids,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// Failure is an athlete whose events could not all be created
type Failure struct {
	AthleteID int64  `json:"athlete_id"`
	Name      string `json:"name"`
	Error     string `json:"error"`
}

// Report summarizes one push. Success stays true when individual athletes
// fail; Failures carries the detail.
type Report struct {
	RunID             string           `json:"run_id"`
	RaceID            int64            `json:"race_id"`
	RaceName          string           `json:"race_name"`
	Success           bool             `json:"success"`
	StartedAt         time.Time        `json:"started_at"`
	FinishedAt        time.Time        `json:"finished_at"`
	AthletesProcessed int              `json:"athletes_processed"`
	AthletesPushed    int              `json:"athletes_pushed"`
	AthletesSkipped   int              `json:"athletes_skipped"`
	EventsPerAthlete  int              `json:"events_per_athlete"`
	EventsCreated     int              `json:"events_created"`
	DuplicatesRemoved int              `json:"duplicates_removed"`
	Outcomes          []AthleteOutcome `json:"outcomes"`
	Failures          []Failure        `json:"failures"`
}

func (r *Report) record(outcome AthleteOutcome) {
	r.Outcomes = append(r.Outcomes, outcome)

	switch outcome.State {
	case StateSkippedNoCredential:
		r.AthletesSkipped++
	case StatePushed:
		r.AthletesPushed++
	case StateFailed:
		r.Failures = append(r.Failures, Failure{
			AthleteID: outcome.AthleteID,
			Name:      outcome.Name,
			Error:     outcome.Error,
		})
	}
	r.EventsCreated += len(outcome.EventIDs)
}
