package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"peloton-planner/internal/config"
	"peloton-planner/internal/database"
	"peloton-planner/internal/intervals"
	"peloton-planner/internal/push"
	"peloton-planner/internal/worker"
)

const testAPIKey = "test_internal_key"

// fakeIntervals is an in-memory Intervals.icu keeping one calendar per API key
type fakeIntervals struct {
	mu     sync.Mutex
	nextID int64
	events map[string][]intervals.Event
}

func (f *fakeIntervals) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, key, _ := r.BasicAuth()

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.URL.Path == "/athlete/0/events" && r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(f.events[key])

	case r.URL.Path == "/athlete/0/events" && r.Method == http.MethodPost:
		var req intervals.EventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		f.nextID++
		event := intervals.Event{
			ID:             f.nextID,
			Name:           req.Name,
			Category:       req.Category,
			StartDateLocal: req.StartDateLocal,
			EndDateLocal:   req.EndDateLocal,
		}
		f.events[key] = append(f.events[key], event)
		json.NewEncoder(w).Encode(event)

	case strings.HasPrefix(r.URL.Path, "/athlete/0/events/") && r.Method == http.MethodDelete:
		id, _ := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/athlete/0/events/"), 10, 64)
		kept := f.events[key][:0]
		for _, e := range f.events[key] {
			if e.ID != id {
				kept = append(kept, e)
			}
		}
		f.events[key] = kept

	case r.URL.Path == "/athlete/0/activities":
		w.Write([]byte(`[{"id": "i100", "start_date_local": "2026-05-01T08:00:00", "type": "Ride", "distance": 60000}]`))

	case r.URL.Path == "/athlete/0/wellness":
		w.Write([]byte(`[{"id": "2026-05-01", "weight": 69.5}]`))

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeIntervals) eventNames(key string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var names []string
	for _, e := range f.events[key] {
		names = append(names, e.Name)
	}
	return names
}

func setupHandlerTest(t *testing.T) (*fiber.App, *database.DB, *fakeIntervals) {
	t.Helper()

	dbPath := t.TempDir() + "/test.db"
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	fake := &fakeIntervals{events: make(map[string][]intervals.Event)}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	cfg := config.Defaults()
	client := intervals.NewClient(server.URL, 5*time.Second, nil)
	store := push.NewStore(db)
	pusher := push.NewPusher(store, client, nil, push.WithRecorder(store))
	syncer := worker.NewSyncer(db, client, cfg)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	New(db, pusher, syncer).Register(app, testAPIKey)

	return app, db, fake
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func call(t *testing.T, app *fiber.App, method, path string, body any) (int, envelope, string) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var env envelope
	if len(raw) > 0 {
		json.Unmarshal(raw, &env)
	}
	return resp.StatusCode, env, string(raw)
}

func decodeData(t *testing.T, env envelope, out any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("Failed to decode data %s: %v", env.Data, err)
	}
}

type idOnly struct {
	ID int64 `json:"id"`
}

func createAthleteViaAPI(t *testing.T, app *fiber.App, first string, key *string) int64 {
	t.Helper()

	body := map[string]any{"first_name": first, "last_name": "Rider", "weight_kg": 70}
	if key != nil {
		body["intervals_api_key"] = *key
	}
	status, env, raw := call(t, app, "POST", "/api/athletes", body)
	if status != fiber.StatusCreated {
		t.Fatalf("Expected 201 creating athlete, got %d: %s", status, raw)
	}
	var created idOnly
	decodeData(t, env, &created)
	return created.ID
}

func createRaceViaAPI(t *testing.T, app *fiber.App, body map[string]any) int64 {
	t.Helper()

	status, env, raw := call(t, app, "POST", "/api/races", body)
	if status != fiber.StatusCreated {
		t.Fatalf("Expected 201 creating race, got %d: %s", status, raw)
	}
	var created idOnly
	decodeData(t, env, &created)
	return created.ID
}

func strPtr(s string) *string {
	return &s
}

func TestHealth(t *testing.T) {
	app, _, _ := setupHandlerTest(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil), -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestAPIRequiresKey(t *testing.T) {
	app, _, _ := setupHandlerTest(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/teams", nil), -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.StatusCode)
	}
}

func TestTeamCRUD(t *testing.T) {
	app, _, _ := setupHandlerTest(t)

	status, env, _ := call(t, app, "POST", "/api/teams", map[string]any{"name": "Elite"})
	if status != fiber.StatusCreated {
		t.Fatalf("Expected 201, got %d", status)
	}
	var team database.Team
	decodeData(t, env, &team)
	if team.ID == 0 || team.Name != "Elite" {
		t.Errorf("Unexpected team: %+v", team)
	}

	if status, env, _ := call(t, app, "POST", "/api/teams", map[string]any{"name": "Elite"}); status != fiber.StatusConflict || env.Success {
		t.Errorf("Expected 409 on duplicate name, got %d", status)
	}
	if status, _, _ := call(t, app, "POST", "/api/teams", map[string]any{"name": "  "}); status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 on blank name, got %d", status)
	}

	path := "/api/teams/" + strconv.FormatInt(team.ID, 10)
	status, env, _ = call(t, app, "PUT", path, map[string]any{"name": "Elite U23", "category": "U23"})
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200 on update, got %d", status)
	}
	decodeData(t, env, &team)
	if team.Name != "Elite U23" || team.Category == nil || *team.Category != "U23" {
		t.Errorf("Unexpected updated team: %+v", team)
	}

	status, env, _ = call(t, app, "GET", "/api/teams", nil)
	var teams []database.Team
	decodeData(t, env, &teams)
	if status != fiber.StatusOK || len(teams) != 1 {
		t.Errorf("Expected 1 team, got %d (status %d)", len(teams), status)
	}

	if status, _, _ := call(t, app, "DELETE", path, nil); status != fiber.StatusNoContent {
		t.Errorf("Expected 204 on delete, got %d", status)
	}
	if status, env, _ := call(t, app, "GET", path, nil); status != fiber.StatusNotFound || env.Error != "team not found" {
		t.Errorf("Expected 404 after delete, got %d %q", status, env.Error)
	}
	if status, _, _ := call(t, app, "DELETE", path, nil); status != fiber.StatusNotFound {
		t.Errorf("Expected 404 on second delete, got %d", status)
	}
	if status, _, _ := call(t, app, "GET", "/api/teams/abc", nil); status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 on invalid id, got %d", status)
	}
}

func TestAthleteKeyIsNeverEchoed(t *testing.T) {
	app, db, _ := setupHandlerTest(t)

	body := map[string]any{
		"first_name":        "Anna",
		"last_name":         "Rossi",
		"weight_kg":         61.5,
		"intervals_api_key": "super-secret-key",
	}
	status, env, raw := call(t, app, "POST", "/api/athletes", body)
	if status != fiber.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", status, raw)
	}
	if strings.Contains(raw, "super-secret-key") {
		t.Errorf("Response leaked API key: %s", raw)
	}

	var created struct {
		ID     int64   `json:"id"`
		HasKey bool    `json:"has_intervals_key"`
		Weight float64 `json:"weight_kg"`
	}
	decodeData(t, env, &created)
	if !created.HasKey || created.Weight != 61.5 {
		t.Errorf("Unexpected athlete: %+v", created)
	}

	path := "/api/athletes/" + strconv.FormatInt(created.ID, 10)

	// Omitting the key keeps it
	status, _, raw = call(t, app, "PUT", path, map[string]any{"first_name": "Anna", "last_name": "Bianchi"})
	if status != fiber.StatusOK || strings.Contains(raw, "super-secret-key") {
		t.Fatalf("Unexpected update response %d: %s", status, raw)
	}
	stored, _ := db.GetAthlete(created.ID)
	if !stored.HasIntervalsKey() || *stored.IntervalsAPIKey != "super-secret-key" || stored.LastName != "Bianchi" {
		t.Errorf("Unexpected stored athlete after update: %+v", stored)
	}

	// An empty key clears it
	status, env, _ = call(t, app, "PUT", path, map[string]any{"first_name": "Anna", "last_name": "Bianchi", "intervals_api_key": ""})
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	decodeData(t, env, &created)
	if created.HasKey {
		t.Error("Expected key to be cleared")
	}
}

func TestAthleteValidation(t *testing.T) {
	app, _, _ := setupHandlerTest(t)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"missing last name", map[string]any{"first_name": "Anna"}, fiber.StatusBadRequest},
		{"negative weight", map[string]any{"first_name": "Anna", "last_name": "Rossi", "weight_kg": -1}, fiber.StatusBadRequest},
		{"unknown team", map[string]any{"first_name": "Anna", "last_name": "Rossi", "team_id": 999}, fiber.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env, _ := call(t, app, "POST", "/api/athletes", tt.body)
			if status != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, status)
			}
			if env.Success || env.Error == "" {
				t.Errorf("Expected error body, got %+v", env)
			}
		})
	}
}

func TestListAthletesFilters(t *testing.T) {
	app, _, _ := setupHandlerTest(t)

	createAthleteViaAPI(t, app, "Keyed", strPtr("k1"))
	createAthleteViaAPI(t, app, "Keyless", nil)

	_, env, _ := call(t, app, "GET", "/api/athletes", nil)
	var all []map[string]any
	decodeData(t, env, &all)
	if len(all) != 2 {
		t.Errorf("Expected 2 athletes, got %d", len(all))
	}

	_, env, _ = call(t, app, "GET", "/api/athletes?with_key=true", nil)
	var keyed []map[string]any
	decodeData(t, env, &keyed)
	if len(keyed) != 1 || keyed[0]["first_name"] != "Keyed" {
		t.Errorf("Expected only the keyed athlete, got %v", keyed)
	}
}

func TestRaceWithStages(t *testing.T) {
	app, _, _ := setupHandlerTest(t)

	raceID := createRaceViaAPI(t, app, map[string]any{
		"name":       "Giro",
		"start_date": "2026-06-01",
		"category":   "a",
		"stages": []map[string]any{
			{"stage_number": 2, "date": "2026-06-02", "distance_km": 75},
			{"stage_number": 1, "date": "2026-06-01", "distance_km": 100, "avg_speed_kmh": 40},
		},
	})

	path := "/api/races/" + strconv.FormatInt(raceID, 10)
	status, env, _ := call(t, app, "GET", path, nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}

	var detail struct {
		Category   string `json:"category"`
		StageCount int    `json:"stage_count"`
		Stages     []struct {
			StageNumber int `json:"stage_number"`
		} `json:"stages"`
		Enrollments []any `json:"enrollments"`
	}
	decodeData(t, env, &detail)
	if detail.Category != "A" {
		t.Errorf("Expected category A, got %q", detail.Category)
	}
	if detail.StageCount != 2 || len(detail.Stages) != 2 {
		t.Fatalf("Expected 2 stages, got count %d and %d stages", detail.StageCount, len(detail.Stages))
	}
	if detail.Stages[0].StageNumber != 1 {
		t.Errorf("Expected stages ordered by number, got %d first", detail.Stages[0].StageNumber)
	}
	if detail.Enrollments == nil {
		t.Error("Expected empty enrollments array, got null")
	}

	// Replacing with one stage turns it back into a single-stage race
	status, _, _ = call(t, app, "PUT", path+"/stages", []map[string]any{{"stage_number": 1, "distance_km": 120}})
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200 replacing stages, got %d", status)
	}
	_, env, _ = call(t, app, "GET", path, nil)
	decodeData(t, env, &detail)
	if detail.StageCount != 1 || len(detail.Stages) != 1 {
		t.Errorf("Expected 1 stage, got count %d and %d stages", detail.StageCount, len(detail.Stages))
	}

	// Updates without stages keep them
	status, _, _ = call(t, app, "PUT", path, map[string]any{"name": "Giro d'Italia", "start_date": "2026-06-01"})
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200 updating race, got %d", status)
	}
	_, env, _ = call(t, app, "GET", path, nil)
	decodeData(t, env, &detail)
	if len(detail.Stages) != 1 || detail.Category != "C" {
		t.Errorf("Expected stages kept and default category, got %d stages, category %q", len(detail.Stages), detail.Category)
	}

	if status, _, _ := call(t, app, "PUT", "/api/races/999/stages", []map[string]any{{"stage_number": 1}}); status != fiber.StatusNotFound {
		t.Errorf("Expected 404 for unknown race, got %d", status)
	}
}

func TestRaceValidation(t *testing.T) {
	app, _, _ := setupHandlerTest(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{"start_date": "2026-06-01"}},
		{"bad date", map[string]any{"name": "Giro", "start_date": "01/06/2026"}},
		{"bad category", map[string]any{"name": "Giro", "start_date": "2026-06-01", "category": "D"}},
		{"negative distance", map[string]any{"name": "Giro", "start_date": "2026-06-01", "distance_km": -5}},
		{"duplicate stage", map[string]any{"name": "Giro", "start_date": "2026-06-01", "stages": []map[string]any{
			{"stage_number": 1}, {"stage_number": 1},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status, _, _ := call(t, app, "POST", "/api/races", tt.body); status != fiber.StatusBadRequest {
				t.Errorf("Expected 400, got %d", status)
			}
		})
	}

	if status, _, _ := call(t, app, "GET", "/api/races?from=june", nil); status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for invalid from, got %d", status)
	}
}

func TestEnrollments(t *testing.T) {
	app, _, _ := setupHandlerTest(t)

	raceID := createRaceViaAPI(t, app, map[string]any{"name": "Flèche", "start_date": "2026-04-22"})
	athleteID := createAthleteViaAPI(t, app, "Luca", strPtr("k1"))

	base := "/api/races/" + strconv.FormatInt(raceID, 10) + "/enrollments/"

	if status, _, _ := call(t, app, "PUT", base+"999", nil); status != fiber.StatusNotFound {
		t.Errorf("Expected 404 for unknown athlete, got %d", status)
	}
	if status, _, _ := call(t, app, "PUT", base+strconv.FormatInt(athleteID, 10), map[string]any{"objective_category": "z"}); status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for invalid objective, got %d", status)
	}

	status, env, _ := call(t, app, "PUT", base+strconv.FormatInt(athleteID, 10), map[string]any{"objective_category": "a", "kj_per_hour_per_kg": 12})
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200 enrolling, got %d", status)
	}
	var enrollment database.Enrollment
	decodeData(t, env, &enrollment)
	if enrollment.ObjectiveCategory == nil || *enrollment.ObjectiveCategory != "A" {
		t.Errorf("Expected normalized objective A, got %v", enrollment.ObjectiveCategory)
	}

	_, env, _ = call(t, app, "GET", "/api/races/"+strconv.FormatInt(raceID, 10)+"/enrollments", nil)
	var enrollments []database.Enrollment
	decodeData(t, env, &enrollments)
	if len(enrollments) != 1 || enrollments[0].AthleteID != athleteID {
		t.Errorf("Expected 1 enrollment for athlete %d, got %+v", athleteID, enrollments)
	}

	if status, _, _ := call(t, app, "DELETE", base+strconv.FormatInt(athleteID, 10), nil); status != fiber.StatusNoContent {
		t.Errorf("Expected 204 unenrolling, got %d", status)
	}
	if status, _, _ := call(t, app, "DELETE", base+strconv.FormatInt(athleteID, 10), nil); status != fiber.StatusNotFound {
		t.Errorf("Expected 404 on second unenroll, got %d", status)
	}
}

func TestPushRace(t *testing.T) {
	app, _, fake := setupHandlerTest(t)

	raceID := createRaceViaAPI(t, app, map[string]any{
		"name":          "Amstel",
		"start_date":    "2026-04-19",
		"category":      "B",
		"distance_km":   250,
		"avg_speed_kmh": 40,
	})
	racePath := "/api/races/" + strconv.FormatInt(raceID, 10)

	if status, _, _ := call(t, app, "POST", "/api/races/999/push", nil); status != fiber.StatusNotFound {
		t.Errorf("Expected 404 for unknown race, got %d", status)
	}
	if status, env, _ := call(t, app, "POST", racePath+"/push", nil); status != fiber.StatusUnprocessableEntity || env.Error != "no athletes enrolled in race" {
		t.Errorf("Expected 422 without enrollments, got %d %q", status, env.Error)
	}

	keyless := createAthleteViaAPI(t, app, "Keyless", nil)
	call(t, app, "PUT", racePath+"/enrollments/"+strconv.FormatInt(keyless, 10), nil)
	if status, _, _ := call(t, app, "POST", racePath+"/push", nil); status != fiber.StatusUnprocessableEntity {
		t.Errorf("Expected 422 without eligible athletes, got %d", status)
	}

	keyed := createAthleteViaAPI(t, app, "Keyed", strPtr("rider-key"))
	call(t, app, "PUT", racePath+"/enrollments/"+strconv.FormatInt(keyed, 10), nil)

	// Pushing twice leaves a single event in the calendar
	var report struct {
		RunID             string `json:"run_id"`
		AthletesProcessed int    `json:"athletes_processed"`
		AthletesPushed    int    `json:"athletes_pushed"`
		AthletesSkipped   int    `json:"athletes_skipped"`
		EventsCreated     int    `json:"events_created"`
		DuplicatesRemoved int    `json:"duplicates_removed"`
	}
	for i := 0; i < 2; i++ {
		status, env, raw := call(t, app, "POST", racePath+"/push", nil)
		if status != fiber.StatusOK {
			t.Fatalf("Push %d: expected 200, got %d: %s", i+1, status, raw)
		}
		decodeData(t, env, &report)
	}

	if report.AthletesProcessed != 1 || report.AthletesPushed != 1 || report.AthletesSkipped != 1 {
		t.Errorf("Unexpected report counters: %+v", report)
	}
	if report.EventsCreated != 1 || report.DuplicatesRemoved != 1 {
		t.Errorf("Expected 1 event created and 1 duplicate removed, got %+v", report)
	}
	if names := fake.eventNames("rider-key"); len(names) != 1 || names[0] != "Amstel" {
		t.Errorf("Expected a single Amstel event, got %v", names)
	}

	status, env, _ := call(t, app, "GET", racePath+"/push-runs", nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200 listing push runs, got %d", status)
	}
	var runs []database.PushRun
	decodeData(t, env, &runs)
	if len(runs) != 2 {
		t.Fatalf("Expected 2 push runs, got %d", len(runs))
	}
	if runs[0].ID != report.RunID {
		t.Errorf("Expected newest run %s first, got %s", report.RunID, runs[0].ID)
	}

	if status, _, _ := call(t, app, "GET", racePath+"/push-runs?limit=0", nil); status != fiber.StatusBadRequest {
		t.Errorf("Expected 400 for limit=0, got %d", status)
	}
}

func TestSyncAthleteEndpoint(t *testing.T) {
	app, db, _ := setupHandlerTest(t)

	if status, _, _ := call(t, app, "POST", "/api/athletes/999/sync", nil); status != fiber.StatusNotFound {
		t.Errorf("Expected 404 for unknown athlete, got %d", status)
	}

	keyless := createAthleteViaAPI(t, app, "Keyless", nil)
	if status, _, _ := call(t, app, "POST", "/api/athletes/"+strconv.FormatInt(keyless, 10)+"/sync", nil); status != fiber.StatusUnprocessableEntity {
		t.Errorf("Expected 422 without key, got %d", status)
	}

	keyed := createAthleteViaAPI(t, app, "Keyed", strPtr("k1"))
	path := "/api/athletes/" + strconv.FormatInt(keyed, 10)

	status, env, raw := call(t, app, "POST", path+"/sync", nil)
	if status != fiber.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", status, raw)
	}
	var result worker.Result
	decodeData(t, env, &result)
	if result.Activities != 1 || result.Wellness != 1 {
		t.Errorf("Unexpected sync result: %+v", result)
	}

	_, env, _ = call(t, app, "GET", path+"/activities", nil)
	var activities []database.Activity
	decodeData(t, env, &activities)
	if len(activities) != 1 || activities[0].ID != "i100" {
		t.Errorf("Expected activity i100, got %+v", activities)
	}

	_, env, _ = call(t, app, "GET", path+"/wellness?from=2026-05-01&to=2026-05-01", nil)
	var wellness []database.Wellness
	decodeData(t, env, &wellness)
	if len(wellness) != 1 {
		t.Errorf("Expected 1 wellness record, got %d", len(wellness))
	}

	athlete, _ := db.GetAthlete(keyed)
	if athlete.WeightKg == nil || *athlete.WeightKg != 69.5 {
		t.Errorf("Expected weight 69.5 from wellness, got %v", athlete.WeightKg)
	}
}
