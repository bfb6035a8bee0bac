package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"peloton-planner/internal/database"
)

type teamRequest struct {
	Name     string  `json:"name"`
	Category *string `json:"category"`
}

func (r *teamRequest) team() (*database.Team, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "name is required")
	}
	return &database.Team{Name: name, Category: r.Category}, nil
}

// ListTeams handles GET /api/teams
func (h *Handler) ListTeams(c *fiber.Ctx) error {
	teams, err := h.db.ListTeams()
	if err != nil {
		return err
	}
	if teams == nil {
		teams = []*database.Team{}
	}
	return respond(c, fiber.StatusOK, teams)
}

// CreateTeam handles POST /api/teams
func (h *Handler) CreateTeam(c *fiber.Ctx) error {
	var req teamRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	team, err := req.team()
	if err != nil {
		return err
	}

	if err := h.db.CreateTeam(team); err != nil {
		return storeError(err, "team")
	}

	h.logger.Info("Team created", "team_id", team.ID, "name", team.Name)
	return respond(c, fiber.StatusCreated, team)
}

// GetTeam handles GET /api/teams/:id
func (h *Handler) GetTeam(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	team, err := h.db.GetTeam(id)
	if err != nil {
		return err
	}
	if team == nil {
		return fiber.NewError(fiber.StatusNotFound, "team not found")
	}
	return respond(c, fiber.StatusOK, team)
}

// UpdateTeam handles PUT /api/teams/:id
func (h *Handler) UpdateTeam(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req teamRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	team, err := req.team()
	if err != nil {
		return err
	}
	team.ID = id

	if err := h.db.UpdateTeam(team); err != nil {
		return storeError(err, "team")
	}

	updated, err := h.db.GetTeam(id)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, updated)
}

// DeleteTeam handles DELETE /api/teams/:id. Athletes of the team are kept
// without a team.
func (h *Handler) DeleteTeam(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.db.DeleteTeam(id); err != nil {
		return storeError(err, "team")
	}

	h.logger.Info("Team deleted", "team_id", id)
	return c.SendStatus(fiber.StatusNoContent)
}
