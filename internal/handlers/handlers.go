package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"peloton-planner/internal/database"
	"peloton-planner/internal/middleware"
	"peloton-planner/internal/push"
	"peloton-planner/internal/worker"
)

const dateLayout = "2006-01-02"

// Handler serves the planner REST API
type Handler struct {
	db     *database.DB
	pusher *push.Pusher
	syncer *worker.Syncer
	logger *slog.Logger
}

// New creates a new API handler
func New(db *database.DB, pusher *push.Pusher, syncer *worker.Syncer) *Handler {
	return &Handler{
		db:     db,
		pusher: pusher,
		syncer: syncer,
		logger: slog.Default(),
	}
}

// Register mounts every route on app. Everything under /api requires the
// internal API key.
func (h *Handler) Register(app *fiber.App, apiKey string) {
	app.Get("/health", h.Health)

	api := app.Group("/api", middleware.APIKey(apiKey))

	api.Get("/teams", h.ListTeams)
	api.Post("/teams", h.CreateTeam)
	api.Get("/teams/:id", h.GetTeam)
	api.Put("/teams/:id", h.UpdateTeam)
	api.Delete("/teams/:id", h.DeleteTeam)

	api.Get("/athletes", h.ListAthletes)
	api.Post("/athletes", h.CreateAthlete)
	api.Get("/athletes/:id", h.GetAthlete)
	api.Put("/athletes/:id", h.UpdateAthlete)
	api.Delete("/athletes/:id", h.DeleteAthlete)
	api.Get("/athletes/:id/activities", h.ListActivities)
	api.Get("/athletes/:id/wellness", h.ListWellness)
	api.Post("/athletes/:id/sync", h.SyncAthlete)

	api.Get("/races", h.ListRaces)
	api.Post("/races", h.CreateRace)
	api.Get("/races/:id", h.GetRace)
	api.Put("/races/:id", h.UpdateRace)
	api.Delete("/races/:id", h.DeleteRace)
	api.Put("/races/:id/stages", h.ReplaceStages)
	api.Get("/races/:id/enrollments", h.ListEnrollments)
	api.Put("/races/:id/enrollments/:athleteId", h.Enroll)
	api.Delete("/races/:id/enrollments/:athleteId", h.Unenroll)
	api.Post("/races/:id/push", h.PushRace)
	api.Get("/races/:id/push-runs", h.ListPushRuns)
}

// ErrorHandler renders any error returned by a handler as the standard JSON
// error body
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	if code >= fiber.StatusInternalServerError {
		slog.Default().Error("Request failed",
			"method", c.Method(),
			"path", c.Path(),
			"status", code,
			"error", err)
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// Health reports whether the database is reachable
func (h *Handler) Health(c *fiber.Ctx) error {
	if err := h.db.Health(); err != nil {
		h.logger.Error("Health check failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
		})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func respond(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return nil
}

// storeError maps database errors onto HTTP errors
func storeError(err error, what string) error {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, what+" not found")
	case strings.Contains(err.Error(), "constraint failed"):
		return fiber.NewError(fiber.StatusConflict, what+" conflicts with existing data")
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func validDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

func validateDateQuery(c *fiber.Ctx, keys ...string) error {
	for _, key := range keys {
		if v := c.Query(key); v != "" && !validDate(v) {
			return fiber.NewError(fiber.StatusBadRequest, key+" must be YYYY-MM-DD")
		}
	}
	return nil
}
