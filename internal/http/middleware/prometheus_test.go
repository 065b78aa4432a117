package middleware

import (
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMetricsApp(t *testing.T) (*fiber.App, *PrometheusMiddleware, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	pm, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(pm.Handler())
	app.Get("/api/images", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Post("/api/upload", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusBadRequest, "no file") })
	app.Delete("/api/images/:filename", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/uploads/:name", func(c *fiber.Ctx) error {
		return fmt.Errorf("serve %s: %w", c.Params("name"), fiber.ErrNotFound)
	})
	app.Get("/metrics", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	return app, pm, reg
}

func TestPrometheusMiddleware_Counts(t *testing.T) {
	app, pm, _ := newMetricsApp(t)

	tests := []struct {
		method, target   string
		label, status    string
		wantResponseCode int
	}{
		{"GET", "/api/images", "/api/images", "200", fiber.StatusOK},
		{"POST", "/api/upload", "/api/upload", "400", fiber.StatusBadRequest},
		{"DELETE", "/api/images/cat_1.png", "/api/images/:filename", "200", fiber.StatusOK},
		{"DELETE", "/api/images/dog_2.png", "/api/images/:filename", "200", fiber.StatusOK},
		{"GET", "/nope", "unmatched", "404", fiber.StatusNotFound},
		{"GET", "/uploads/a.png", "/uploads/:name", "404", fiber.StatusNotFound},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(tt.method, tt.target, nil))
		require.NoError(t, err)
		assert.Equal(t, tt.wantResponseCode, resp.StatusCode, tt.target)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(pm.requestCount.WithLabelValues("GET", "/api/images", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.requestCount.WithLabelValues("POST", "/api/upload", "400")))
	assert.Equal(t, 2.0, testutil.ToFloat64(pm.requestCount.WithLabelValues("DELETE", "/api/images/:filename", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.requestCount.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(pm.requestCount.WithLabelValues("GET", "/uploads/:name", "404")))

	assert.Equal(t, 5, testutil.CollectAndCount(pm.requestDuration))
	assert.Equal(t, 0.0, testutil.ToFloat64(pm.inFlight))
}

func TestPrometheusMiddleware_SkipsMetricsEndpoint(t *testing.T) {
	app, pm, _ := newMetricsApp(t)

	_, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)

	assert.Equal(t, 0, testutil.CollectAndCount(pm.requestCount))
}

func TestPrometheusMiddleware_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusMiddleware(reg)
	require.NoError(t, err)

	_, err = NewPrometheusMiddleware(reg)
	assert.Error(t, err)
}
