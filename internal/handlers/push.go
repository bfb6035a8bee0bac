package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"peloton-planner/internal/database"
	"peloton-planner/internal/push"
)

const defaultPushRunLimit = 20

// PushRace handles POST /api/races/:id/push. Partial failures still answer
// 200; the report lists them.
func (h *Handler) PushRace(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	report, err := h.pusher.PushRace(c.UserContext(), id)
	switch {
	case errors.Is(err, push.ErrRaceNotFound):
		return fiber.NewError(fiber.StatusNotFound, "race not found")
	case errors.Is(err, push.ErrNoEnrollments):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "no athletes enrolled in race")
	case errors.Is(err, push.ErrNoEligibleAthletes):
		return fiber.NewError(fiber.StatusUnprocessableEntity, "no enrolled athlete has an Intervals.icu API key")
	case err != nil:
		return err
	}

	return respond(c, fiber.StatusOK, report)
}

// ListPushRuns handles GET /api/races/:id/push-runs, newest first
func (h *Handler) ListPushRuns(c *fiber.Ctx) error {
	race, err := h.loadRace(c)
	if err != nil {
		return err
	}

	limit := c.QueryInt("limit", defaultPushRunLimit)
	if limit < 1 || limit > 100 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must be between 1 and 100")
	}

	runs, err := h.db.ListPushRuns(race.ID, limit)
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []*database.PushRun{}
	}
	return respond(c, fiber.StatusOK, runs)
}
