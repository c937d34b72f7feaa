package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerAddsContextIDs(t *testing.T) {
	var buf bytes.Buffer
	log := newLoggerTo(&buf, "production", "")

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, "alice")
	log.InfoContext(ctx, "hello")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "alice", rec["user_id"])
	assert.NotContains(t, rec, "trace_id")
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newLoggerTo(&buf, "production", "warn")
	log.Info("dropped")
	assert.Empty(t, buf.String())

	log = newLoggerTo(&buf, "production", "shouting")
	log.Info("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger
	Logger = newLoggerTo(&buf, "production", "debug")
	t.Cleanup(func() { Logger = prev })

	app := fiber.New()
	app.Use(ContextMiddleware(), StructuredLogger())
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/missing", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNotFound) })
	app.Get("/health/live", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	levels := map[string]string{}
	for _, path := range []string{"/ok", "/missing", "/health/live"} {
		buf.Reset()
		_, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec), path)
		levels[path] = rec["level"].(string)
	}
	assert.Equal(t, map[string]string{"/ok": "INFO", "/missing": "WARN", "/health/live": "DEBUG"}, levels)
}
