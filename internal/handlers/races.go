package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"peloton-planner/internal/database"
)

type stageRequest struct {
	StageNumber int     `json:"stage_number"`
	Date        string  `json:"date"`
	DistanceKm  float64 `json:"distance_km"`
	ElevationM  float64 `json:"elevation_m"`
	AvgSpeedKmh float64 `json:"avg_speed_kmh"`
}

type raceRequest struct {
	TeamID               *int64   `json:"team_id"`
	Name                 string   `json:"name"`
	StartDate            string   `json:"start_date"`
	Category             string   `json:"category"`
	Location             *string  `json:"location"`
	DistanceKm           float64  `json:"distance_km"`
	ElevationM           float64  `json:"elevation_m"`
	AvgSpeedKmh          float64  `json:"avg_speed_kmh"`
	PredictedDurationMin *float64 `json:"predicted_duration_min"`
	PredictedKJ          *float64 `json:"predicted_kj"`
	Notes                *string  `json:"notes"`
	// Stages replaces the race's stages when present
	Stages []stageRequest `json:"stages"`
}

type enrollmentRequest struct {
	ObjectiveCategory *string  `json:"objective_category"`
	KJPerHourPerKg    *float64 `json:"kj_per_hour_per_kg"`
}

// raceDetail is a race with its stages and enrollments
type raceDetail struct {
	*database.Race
	Stages      []*database.Stage      `json:"stages"`
	Enrollments []*database.Enrollment `json:"enrollments"`
}

func validCategory(category string) bool {
	switch category {
	case "", "A", "B", "C":
		return true
	}
	return false
}

func (h *Handler) applyRace(req *raceRequest, r *database.Race) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name is required")
	}
	if !validDate(req.StartDate) {
		return fiber.NewError(fiber.StatusBadRequest, "start_date must be YYYY-MM-DD")
	}
	category := strings.ToUpper(strings.TrimSpace(req.Category))
	if !validCategory(category) {
		return fiber.NewError(fiber.StatusBadRequest, "category must be A, B or C")
	}
	if req.DistanceKm < 0 || req.ElevationM < 0 || req.AvgSpeedKmh < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "distance, elevation and speed cannot be negative")
	}
	if req.TeamID != nil {
		team, err := h.db.GetTeam(*req.TeamID)
		if err != nil {
			return err
		}
		if team == nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "team not found")
		}
	}

	r.TeamID = req.TeamID
	r.Name = name
	r.StartDate = req.StartDate
	r.Category = category
	r.Location = req.Location
	r.DistanceKm = req.DistanceKm
	r.ElevationM = req.ElevationM
	r.AvgSpeedKmh = req.AvgSpeedKmh
	r.PredictedDurationMin = req.PredictedDurationMin
	r.PredictedKJ = req.PredictedKJ
	r.Notes = req.Notes
	return nil
}

func buildStages(reqs []stageRequest) ([]*database.Stage, error) {
	seen := make(map[int]bool, len(reqs))
	stages := make([]*database.Stage, 0, len(reqs))
	for _, s := range reqs {
		if s.StageNumber < 1 {
			return nil, fiber.NewError(fiber.StatusBadRequest, "stage_number must be at least 1")
		}
		if seen[s.StageNumber] {
			return nil, fiber.NewError(fiber.StatusBadRequest, "duplicate stage_number")
		}
		seen[s.StageNumber] = true
		if s.Date != "" && !validDate(s.Date) {
			return nil, fiber.NewError(fiber.StatusBadRequest, "stage date must be YYYY-MM-DD")
		}
		if s.DistanceKm < 0 || s.ElevationM < 0 || s.AvgSpeedKmh < 0 {
			return nil, fiber.NewError(fiber.StatusBadRequest, "stage metrics cannot be negative")
		}
		stages = append(stages, &database.Stage{
			StageNumber: s.StageNumber,
			Date:        s.Date,
			DistanceKm:  s.DistanceKm,
			ElevationM:  s.ElevationM,
			AvgSpeedKmh: s.AvgSpeedKmh,
		})
	}
	return stages, nil
}

func (h *Handler) loadRace(c *fiber.Ctx) (*database.Race, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	race, err := h.db.GetRace(id)
	if err != nil {
		return nil, err
	}
	if race == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "race not found")
	}
	return race, nil
}

func (h *Handler) raceDetail(race *database.Race) (*raceDetail, error) {
	stages, err := h.db.ListStages(race.ID)
	if err != nil {
		return nil, err
	}
	enrollments, err := h.db.ListEnrollments(race.ID)
	if err != nil {
		return nil, err
	}
	if stages == nil {
		stages = []*database.Stage{}
	}
	if enrollments == nil {
		enrollments = []*database.Enrollment{}
	}
	return &raceDetail{Race: race, Stages: stages, Enrollments: enrollments}, nil
}

// ListRaces handles GET /api/races
// Query parameters:
//   - team_id: only races of this team
//   - from, to: inclusive start date bounds (YYYY-MM-DD)
//   - offset, limit: pagination (default: all)
func (h *Handler) ListRaces(c *fiber.Ctx) error {
	if err := validateDateQuery(c, "from", "to"); err != nil {
		return err
	}

	filter := database.RaceFilter{From: c.Query("from"), To: c.Query("to")}
	if c.Query("team_id") != "" {
		id := int64(c.QueryInt("team_id"))
		if id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid team_id")
		}
		filter.TeamID = &id
	}

	races, err := h.db.ListRaces(filter, c.QueryInt("offset"), c.QueryInt("limit"))
	if err != nil {
		return err
	}
	if races == nil {
		races = []*database.Race{}
	}
	return respond(c, fiber.StatusOK, races)
}

// CreateRace handles POST /api/races
func (h *Handler) CreateRace(c *fiber.Ctx) error {
	var req raceRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	var race database.Race
	if err := h.applyRace(&req, &race); err != nil {
		return err
	}
	stages, err := buildStages(req.Stages)
	if err != nil {
		return err
	}

	if err := h.db.CreateRace(&race); err != nil {
		return storeError(err, "race")
	}
	if len(stages) > 0 {
		if err := h.db.ReplaceStages(race.ID, stages); err != nil {
			return storeError(err, "race")
		}
	}

	h.logger.Info("Race created", "race_id", race.ID, "name", race.Name, "stages", len(stages))

	created, err := h.db.GetRace(race.ID)
	if err != nil {
		return err
	}
	detail, err := h.raceDetail(created)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, detail)
}

// GetRace handles GET /api/races/:id
func (h *Handler) GetRace(c *fiber.Ctx) error {
	race, err := h.loadRace(c)
	if err != nil {
		return err
	}
	detail, err := h.raceDetail(race)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, detail)
}

// UpdateRace handles PUT /api/races/:id. Stages are left untouched unless
// the body carries them.
func (h *Handler) UpdateRace(c *fiber.Ctx) error {
	race, err := h.loadRace(c)
	if err != nil {
		return err
	}

	var req raceRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.applyRace(&req, race); err != nil {
		return err
	}
	stages, err := buildStages(req.Stages)
	if err != nil {
		return err
	}

	if err := h.db.UpdateRace(race); err != nil {
		return storeError(err, "race")
	}
	if req.Stages != nil {
		if err := h.db.ReplaceStages(race.ID, stages); err != nil {
			return storeError(err, "race")
		}
	}

	updated, err := h.db.GetRace(race.ID)
	if err != nil {
		return err
	}
	detail, err := h.raceDetail(updated)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, detail)
}

// DeleteRace handles DELETE /api/races/:id
func (h *Handler) DeleteRace(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.db.DeleteRace(id); err != nil {
		return storeError(err, "race")
	}

	h.logger.Info("Race deleted", "race_id", id)
	return c.SendStatus(fiber.StatusNoContent)
}

// ReplaceStages handles PUT /api/races/:id/stages with a JSON array body
func (h *Handler) ReplaceStages(c *fiber.Ctx) error {
	race, err := h.loadRace(c)
	if err != nil {
		return err
	}

	var reqs []stageRequest
	if err := parseBody(c, &reqs); err != nil {
		return err
	}
	stages, err := buildStages(reqs)
	if err != nil {
		return err
	}

	if err := h.db.ReplaceStages(race.ID, stages); err != nil {
		return storeError(err, "race")
	}
	return respond(c, fiber.StatusOK, stages)
}

// ListEnrollments handles GET /api/races/:id/enrollments
func (h *Handler) ListEnrollments(c *fiber.Ctx) error {
	race, err := h.loadRace(c)
	if err != nil {
		return err
	}

	enrollments, err := h.db.ListEnrollments(race.ID)
	if err != nil {
		return err
	}
	if enrollments == nil {
		enrollments = []*database.Enrollment{}
	}
	return respond(c, fiber.StatusOK, enrollments)
}

// Enroll handles PUT /api/races/:id/enrollments/:athleteId
func (h *Handler) Enroll(c *fiber.Ctx) error {
	race, err := h.loadRace(c)
	if err != nil {
		return err
	}
	athleteID, err := paramID(c, "athleteId")
	if err != nil {
		return err
	}
	athlete, err := h.db.GetAthlete(athleteID)
	if err != nil {
		return err
	}
	if athlete == nil {
		return fiber.NewError(fiber.StatusNotFound, "athlete not found")
	}

	var req enrollmentRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	if req.ObjectiveCategory != nil {
		category := strings.ToUpper(strings.TrimSpace(*req.ObjectiveCategory))
		if !validCategory(category) {
			return fiber.NewError(fiber.StatusBadRequest, "objective_category must be A, B or C")
		}
		if category == "" {
			req.ObjectiveCategory = nil
		} else {
			req.ObjectiveCategory = &category
		}
	}
	if req.KJPerHourPerKg != nil && *req.KJPerHourPerKg <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "kj_per_hour_per_kg must be positive")
	}

	enrollment := &database.Enrollment{
		RaceID:            race.ID,
		AthleteID:         athlete.ID,
		ObjectiveCategory: req.ObjectiveCategory,
		KJPerHourPerKg:    req.KJPerHourPerKg,
	}
	if err := h.db.UpsertEnrollment(enrollment); err != nil {
		return storeError(err, "enrollment")
	}

	h.logger.Info("Athlete enrolled", "race_id", race.ID, "athlete_id", athlete.ID)
	return respond(c, fiber.StatusOK, enrollment)
}

// Unenroll handles DELETE /api/races/:id/enrollments/:athleteId
func (h *Handler) Unenroll(c *fiber.Ctx) error {
	raceID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	athleteID, err := paramID(c, "athleteId")
	if err != nil {
		return err
	}

	if err := h.db.DeleteEnrollment(raceID, athleteID); err != nil {
		return storeError(err, "enrollment")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
