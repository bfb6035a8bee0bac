package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"peloton-planner/internal/metrics"
)

func TestAPIKey(t *testing.T) {
	app := fiber.New()
	app.Use(APIKey("secret"))
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic secret", fiber.StatusUnauthorized},
		{"wrong key", "Bearer nope", fiber.StatusUnauthorized},
		{"valid", "Bearer secret", fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ping", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestMetricsLabelsByRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Metrics())
	app.Get("/things/:id", func(c *fiber.Ctx) error {
		return c.SendString(c.Params("id"))
	})
	app.Get("/broken", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	okCounter := metrics.HTTPRequestsTotal.WithLabelValues("/things/:id", "200")
	errCounter := metrics.HTTPRequestsTotal.WithLabelValues("/broken", "418")
	okBefore := testutil.ToFloat64(okCounter)
	errBefore := testutil.ToFloat64(errCounter)

	for _, path := range []string{"/things/1", "/things/2", "/broken"} {
		if _, err := app.Test(httptest.NewRequest("GET", path, nil), -1); err != nil {
			t.Fatalf("Request to %s failed: %v", path, err)
		}
	}

	if got := testutil.ToFloat64(okCounter) - okBefore; got != 2 {
		t.Errorf("Expected 2 requests on /things/:id, got %v", got)
	}
	if got := testutil.ToFloat64(errCounter) - errBefore; got != 1 {
		t.Errorf("Expected 1 request on /broken with 418, got %v", got)
	}
}
