package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"peloton-planner/internal/database"
	"peloton-planner/internal/worker"
)

// athleteResponse never carries the API key itself
type athleteResponse struct {
	*database.Athlete
	HasKey bool `json:"has_intervals_key"`
}

func newAthleteResponse(a *database.Athlete) athleteResponse {
	return athleteResponse{Athlete: a, HasKey: a.HasIntervalsKey()}
}

type athleteRequest struct {
	TeamID    *int64   `json:"team_id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	WeightKg  *float64 `json:"weight_kg"`
	FTPWatts  *int64   `json:"ftp_watts"`
	// Omitted keeps the stored key; an empty string clears it
	IntervalsAPIKey *string `json:"intervals_api_key"`
}

func (h *Handler) applyAthlete(req *athleteRequest, a *database.Athlete) error {
	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	if first == "" || last == "" {
		return fiber.NewError(fiber.StatusBadRequest, "first_name and last_name are required")
	}
	if req.WeightKg != nil && *req.WeightKg <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "weight_kg must be positive")
	}
	if req.FTPWatts != nil && *req.FTPWatts <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "ftp_watts must be positive")
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

	a.TeamID = req.TeamID
	a.FirstName = first
	a.LastName = last
	a.WeightKg = req.WeightKg
	a.FTPWatts = req.FTPWatts
	if req.IntervalsAPIKey != nil {
		if key := strings.TrimSpace(*req.IntervalsAPIKey); key != "" {
			a.IntervalsAPIKey = &key
		} else {
			a.IntervalsAPIKey = nil
		}
	}
	return nil
}

func (h *Handler) loadAthlete(c *fiber.Ctx) (*database.Athlete, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	athlete, err := h.db.GetAthlete(id)
	if err != nil {
		return nil, err
	}
	if athlete == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "athlete not found")
	}
	return athlete, nil
}

// ListAthletes handles GET /api/athletes
// Query parameters:
//   - team_id: only athletes of this team
//   - with_key: only athletes with an Intervals.icu key
//   - offset, limit: pagination (default: all)
func (h *Handler) ListAthletes(c *fiber.Ctx) error {
	var teamID *int64
	if c.Query("team_id") != "" {
		id := int64(c.QueryInt("team_id"))
		if id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid team_id")
		}
		teamID = &id
	}

	athletes, err := h.db.ListAthletes(teamID, c.QueryBool("with_key"), c.QueryInt("offset"), c.QueryInt("limit"))
	if err != nil {
		return err
	}

	out := make([]athleteResponse, 0, len(athletes))
	for _, a := range athletes {
		out = append(out, newAthleteResponse(a))
	}
	return respond(c, fiber.StatusOK, out)
}

// CreateAthlete handles POST /api/athletes
func (h *Handler) CreateAthlete(c *fiber.Ctx) error {
	var req athleteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	var athlete database.Athlete
	if err := h.applyAthlete(&req, &athlete); err != nil {
		return err
	}
	if err := h.db.CreateAthlete(&athlete); err != nil {
		return storeError(err, "athlete")
	}

	h.logger.Info("Athlete created", "athlete_id", athlete.ID, "has_intervals_key", athlete.HasIntervalsKey())
	return respond(c, fiber.StatusCreated, newAthleteResponse(&athlete))
}

// GetAthlete handles GET /api/athletes/:id
func (h *Handler) GetAthlete(c *fiber.Ctx) error {
	athlete, err := h.loadAthlete(c)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, newAthleteResponse(athlete))
}

// UpdateAthlete handles PUT /api/athletes/:id
func (h *Handler) UpdateAthlete(c *fiber.Ctx) error {
	athlete, err := h.loadAthlete(c)
	if err != nil {
		return err
	}

	var req athleteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.applyAthlete(&req, athlete); err != nil {
		return err
	}
	if err := h.db.UpdateAthlete(athlete); err != nil {
		return storeError(err, "athlete")
	}

	return respond(c, fiber.StatusOK, newAthleteResponse(athlete))
}

// DeleteAthlete handles DELETE /api/athletes/:id
func (h *Handler) DeleteAthlete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.db.DeleteAthlete(id); err != nil {
		return storeError(err, "athlete")
	}

	h.logger.Info("Athlete deleted", "athlete_id", id)
	return c.SendStatus(fiber.StatusNoContent)
}

// ListActivities handles GET /api/athletes/:id/activities
func (h *Handler) ListActivities(c *fiber.Ctx) error {
	athlete, err := h.loadAthlete(c)
	if err != nil {
		return err
	}

	activities, err := h.db.ListActivitiesByAthlete(athlete.ID, c.QueryInt("offset"), c.QueryInt("limit", 100))
	if err != nil {
		return err
	}
	if activities == nil {
		activities = []*database.Activity{}
	}
	return respond(c, fiber.StatusOK, activities)
}

// ListWellness handles GET /api/athletes/:id/wellness with optional from/to
// date bounds
func (h *Handler) ListWellness(c *fiber.Ctx) error {
	if err := validateDateQuery(c, "from", "to"); err != nil {
		return err
	}
	athlete, err := h.loadAthlete(c)
	if err != nil {
		return err
	}

	records, err := h.db.ListWellness(athlete.ID, c.Query("from"), c.Query("to"))
	if err != nil {
		return err
	}
	if records == nil {
		records = []*database.Wellness{}
	}
	return respond(c, fiber.StatusOK, records)
}

// SyncAthlete handles POST /api/athletes/:id/sync, pulling the lookback
// window of activities and wellness right away
func (h *Handler) SyncAthlete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	result, err := h.syncer.SyncAthlete(c.UserContext(), id)
	switch {
	case errors.Is(err, worker.ErrAthleteNotFound):
		return fiber.NewError(fiber.StatusNotFound, "athlete not found")
	case errors.Is(err, worker.ErrNoCredential):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "athlete has no Intervals.icu API key")
	case err != nil && result != nil:
		// Part of the window may have been stored
		h.logger.Warn("Athlete sync incomplete", "athlete_id", id, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
			"data":    result,
		})
	case err != nil:
		return err
	}

	return respond(c, fiber.StatusOK, result)
}
