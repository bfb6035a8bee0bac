package push

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"peloton-planner/internal/intervals"
)

type fakeRepo struct {
	races       map[int64]*Race
	stages      map[int64][]Stage
	enrollments map[int64][]Enrollment
	athletes    map[int64]*Athlete
	err         error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		races:       map[int64]*Race{},
		stages:      map[int64][]Stage{},
		enrollments: map[int64][]Enrollment{},
		athletes:    map[int64]*Athlete{},
	}
}

func (r *fakeRepo) GetRace(id int64) (*Race, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.races[id], nil
}

func (r *fakeRepo) GetStages(raceID int64) ([]Stage, error) {
	return r.stages[raceID], nil
}

func (r *fakeRepo) GetEnrollments(raceID int64) ([]Enrollment, error) {
	return r.enrollments[raceID], nil
}

func (r *fakeRepo) GetAthlete(id int64) (*Athlete, error) {
	return r.athletes[id], nil
}

func (r *fakeRepo) enroll(raceID int64, a *Athlete, objective string) {
	r.athletes[a.ID] = a
	r.enrollments[raceID] = append(r.enrollments[raceID], Enrollment{
		RaceID:            raceID,
		AthleteID:         a.ID,
		ObjectiveCategory: objective,
		EnergyRate:        10,
	})
}

// fakeCalendar keeps one in-memory calendar per API key
type fakeCalendar struct {
	mu        sync.Mutex
	nextID    int64
	events    map[string][]intervals.Event
	requests  map[string][]intervals.EventRequest
	calls     map[string]int
	createErr map[string]error
	listErr   error
	deleteErr error
	block     chan struct{}
	entered   chan struct{}
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{
		nextID:    1000,
		events:    map[string][]intervals.Event{},
		requests:  map[string][]intervals.EventRequest{},
		calls:     map[string]int{},
		createErr: map[string]error{},
	}
}

func (f *fakeCalendar) ListEvents(ctx context.Context, apiKey, athleteRef, oldest, newest string) ([]intervals.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[apiKey]++
	if f.listErr != nil {
		return nil, f.listErr
	}

	var out []intervals.Event
	for _, e := range f.events[apiKey] {
		day := strings.SplitN(e.StartDateLocal, "T", 2)[0]
		if day >= oldest && day <= newest {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, apiKey, athleteRef string, eventID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[apiKey]++
	if f.deleteErr != nil {
		return f.deleteErr
	}

	events := f.events[apiKey]
	for i, e := range events {
		if e.ID == eventID {
			f.events[apiKey] = append(events[:i], events[i+1:]...)
			return nil
		}
	}
	return &intervals.HTTPError{StatusCode: 404, Body: "not found"}
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, apiKey, athleteRef string, req *intervals.EventRequest) (*intervals.Event, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[apiKey]++
	if err := f.createErr[apiKey]; err != nil {
		return nil, err
	}

	f.nextID++
	event := intervals.Event{
		ID:             f.nextID,
		Name:           req.Name,
		Category:       req.Category,
		StartDateLocal: req.StartDateLocal,
		EndDateLocal:   req.EndDateLocal,
	}
	f.events[apiKey] = append(f.events[apiKey], event)
	f.requests[apiKey] = append(f.requests[apiKey], *req)
	return &event, nil
}

func (f *fakeCalendar) names(apiKey string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var names []string
	for _, e := range f.events[apiKey] {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

func (f *fakeCalendar) callCount(apiKey string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[apiKey]
}

type fakeRecorder struct {
	mu      sync.Mutex
	reports []*Report
	err     error
}

func (r *fakeRecorder) SaveReport(report *Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return r.err
}

var errBoom = errors.New("remote exploded")
